package domain

import "errors"

// Error kinds from the error handling design (spec.md §7). Engine and book
// operations that can fail return one of these, either as is or wrapped with
// context via fmt.Errorf's %w.
var (
	ErrBadInput             = errors.New("bad input")
	ErrDuplicateTraderOrder = errors.New("trader already has an active order")
	ErrAmendImpossible      = errors.New("amend impossible")
	ErrCancelImpossible     = errors.New("cancel impossible")
	ErrNotFound             = errors.New("not found")
)

// Invariant is raised when a programming bug corrupts book/engine state
// (I1-I4 in spec.md §3). These are never expected in normal operation and
// must abort the process loudly per spec.md §7, so callers should panic with
// an Invariant rather than return it as a normal error.
type Invariant struct {
	Name   string
	Detail string
}

func (i Invariant) Error() string {
	return "invariant " + i.Name + " violated: " + i.Detail
}
