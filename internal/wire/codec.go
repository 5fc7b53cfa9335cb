package wire

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Decoder reads newline-delimited Command envelopes from a connection,
// mirroring the teacher's one-message-per-read discipline in
// internal/net/server.go but over JSON lines instead of a fixed-offset
// binary layout.
type Decoder struct {
	scanner *bufio.Scanner
}

func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), 1<<20)
	return &Decoder{scanner: s}
}

// Next blocks for the next line and decodes it as a Command. It returns
// io.EOF when the connection is closed cleanly.
func (d *Decoder) Next() (Command, error) {
	if !d.scanner.Scan() {
		if err := d.scanner.Err(); err != nil {
			return Command{}, err
		}
		return Command{}, io.EOF
	}
	var cmd Command
	if err := json.Unmarshal(d.scanner.Bytes(), &cmd); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	return cmd, nil
}

// Encoder writes newline-delimited Response envelopes.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) Encode(resp Response) error {
	line, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	line = append(line, '\n')
	_, err = e.w.Write(line)
	return err
}
