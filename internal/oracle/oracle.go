// Package oracle defines the price oracle abstraction: the external listing
// source the scan engine asks for current prices.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

// PriceOracle returns the listings currently offered for a free-text query.
// Implementations must be safe for concurrent use and must honor ctx.
type PriceOracle interface {
	Search(ctx context.Context, query string) ([]domain.Listing, error)
}

// Kind classifies an oracle failure.
type Kind int

const (
	// Transient failures may succeed on the next scan.
	Transient Kind = iota
	// Permanent failures will not succeed without a change to the query or
	// the oracle configuration.
	Permanent
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Error is returned by every PriceOracle implementation in this package.
type Error struct {
	Query string
	Kind  Kind
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("oracle search %q (%s): %v", e.Query, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is an oracle failure worth retrying later.
// Errors that are not *Error are treated as transient.
func IsTransient(err error) bool {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind == Transient
	}
	return err != nil
}

// KindOf returns the failure kind of err.
func KindOf(err error) Kind {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return Transient
}

func transient(query string, err error) *Error {
	return &Error{Query: query, Kind: Transient, Err: err}
}

func permanent(query string, err error) *Error {
	return &Error{Query: query, Kind: Permanent, Err: err}
}

// classifyStatus maps a non-200 HTTP status to a failure kind.
func classifyStatus(status int) Kind {
	switch {
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= http.StatusInternalServerError:
		return Transient
	default:
		return Permanent
	}
}
