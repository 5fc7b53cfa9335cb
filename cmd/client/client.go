// Command client is a one-shot manual CLI for submitting/amending/
// cancelling/getting an order against a running matchengine server,
// grounded on the teacher's cmd/client/client.go flag surface (-server,
// -owner, -action, -ticker, -side, -type, -price, -qty, -order-id) but speaking
// the JSON-line wire protocol instead of the teacher's fixed-offset binary
// framing.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"

	"github.com/emberex/matchengine/internal/domain"
	"github.com/emberex/matchengine/internal/wire"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9999", "address of the matching engine")
	owner := flag.String("owner", "", "trader id (required, except for get)")
	action := flag.String("action", "submit", "action: submit, amend, cancel, get")

	ticker := flag.String("ticker", "AAPL", "ticker symbol")
	sideStr := flag.String("side", "buy", "order side: buy or sell")
	typeStr := flag.String("type", "limit", "order type: market, limit, ioc")
	price := flag.Float64("price", 100.0, "limit/ioc price")
	qty := flag.Uint64("qty", 10, "order quantity")
	orderID := flag.String("order-id", "", "order id for amend/cancel/get")

	flag.Parse()

	if *owner == "" && strings.ToLower(*action) != "get" {
		fmt.Println("Error: -owner is required")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s as %q\n", *serverAddr, *owner)

	go readReports(conn)

	cmd, err := buildCommand(*action, *owner, *ticker, *sideStr, *typeStr, *price, *qty, *orderID)
	if err != nil {
		log.Fatalf("bad command: %v", err)
	}
	if err := cmd.Validate(); err != nil {
		log.Fatalf("invalid command: %v", err)
	}

	line, err := json.Marshal(cmd)
	if err != nil {
		log.Fatalf("encode command: %v", err)
	}
	if _, err := conn.Write(append(line, '\n')); err != nil {
		log.Fatalf("send command: %v", err)
	}
	fmt.Printf("-> sent %s\n", cmd.RequestType)

	fmt.Println("listening for responses... (Ctrl+C to exit)")
	select {}
}

func buildCommand(action, owner, ticker, sideStr, typeStr string, price float64, qty uint64, orderID string) (wire.Command, error) {
	switch strings.ToLower(action) {
	case "submit":
		side, err := domain.ParseSide(sideStr)
		if err != nil {
			return wire.Command{}, err
		}
		orderType, err := domain.ParseOrderType(typeStr)
		if err != nil {
			return wire.Command{}, err
		}
		cmd := wire.Command{
			RequestType: domain.Submit,
			TraderID:    owner,
			Ticker:      ticker,
			OrderSide:   side,
			OrderType:   orderType,
			Quantity:    qty,
		}
		if orderType != domain.Market {
			cmd.Price = &price
		}
		return cmd, nil
	case "amend":
		return wire.Command{RequestType: domain.Amend, TraderID: owner, OrderID: orderID, Quantity: qty}, nil
	case "cancel":
		return wire.Command{RequestType: domain.Cancel, TraderID: owner, OrderID: orderID}, nil
	case "get":
		return wire.Command{RequestType: domain.Get, TraderID: owner, OrderID: orderID}, nil
	default:
		return wire.Command{}, fmt.Errorf("unknown action %q", action)
	}
}

// readReports prints every Response line the server sends back, both the
// synchronous reply to this client's own commands and the asynchronous
// execution reports pushed when a counterparty's order crosses this
// trader's resting order.
func readReports(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		var resp wire.Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			fmt.Printf("\n[MALFORMED RESPONSE] %v\n", err)
			continue
		}
		if !resp.Success {
			fmt.Printf("\n[ERROR] %s\n", resp.Error)
			continue
		}
		if resp.Order != nil {
			fmt.Printf("\n[REPORT] order=%s %s %s qty=%d price=%.2f filled=%d executed=%t\n",
				resp.Order.OrderID, resp.Order.Side, resp.Order.Ticker,
				resp.Order.Quantity, resp.Order.Price, resp.Order.Filled, resp.Order.IsExecuted)
		}
	}
	fmt.Println("\nconnection closed")
	os.Exit(0)
}
