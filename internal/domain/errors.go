package domain

import "github.com/pkg/errors"

var (
	// ErrInvalidArgument marks a caller-supplied value outside the
	// operation's contract. Never retried, never absorbed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientHoldings marks a sell exceeding the owned quantity.
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrNoData is the degraded-lookup sentinel: the remote service could
	// not be reached within the retry budget. Callers that need a hard
	// failure must check for it explicitly.
	ErrNoData = errors.New("no data available")
)
