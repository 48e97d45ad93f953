// Package application holds the pieces shared by every use case: the UseCase shape,
// the caller identity, the clock and the RED instrumentation wrapped around Execute.
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	domorder "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
)

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

// Actor is the authenticated caller as asserted by the upstream auth layer.
type Actor struct {
	UserID string
	Admin  bool
	// Source names the automated origin of a change; set only by System.
	Source string
}

func (a Actor) String() string {
	switch {
	case a.Admin:
		return "admin:" + a.UserID
	case a.Source != "":
		return "system:" + a.Source
	case a.UserID == "":
		return "system"
	default:
		return "buyer:" + a.UserID
	}
}

// System is the actor for gateway-driven changes such as webhooks.
func System(source string) Actor { return Actor{Source: source} }

// CanRead reports whether the actor may see an order owned by buyerID.
func (a Actor) CanRead(buyerID string) bool {
	return a.Admin || (a.UserID != "" && a.UserID == buyerID)
}

type IDGenerator interface {
	NewID() string
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

var ErrRepository = errors.New("application: repository failure")

// WrapRepositoryError keeps domain sentinels visible and tags everything else as a store failure.
func WrapRepositoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domorder.ErrNotFound),
		errors.Is(err, domorder.ErrConflict),
		errors.Is(err, domorder.ErrValidation),
		errors.Is(err, domorder.ErrInvalidTransition),
		errors.Is(err, domorder.ErrIdempotentNoop),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrRepository, err)
	}
}
