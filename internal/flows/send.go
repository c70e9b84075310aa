package flows

import (
	"context"
	"fmt"
	"log/slog"
)

type sendStep struct {
	email        string
	purpose      string
	lock         func(context.Context, string) (func(), error)
	generate     func(context.Context) (string, error)
	deliver      func(context.Context, string) error
	deliveryFail error
	logger       *slog.Logger
}

// run holds the per-user send lock across generate and deliver so that a
// concurrent send cannot overwrite a code before it has been handed to the
// notifier. A delivery failure leaves the generated code stored.
func (s sendStep) run(ctx context.Context) (generated bool, err error) {
	unlock, err := s.lock(ctx, s.email)
	if err != nil {
		return false, err
	}
	defer unlock()

	code, err := s.generate(ctx)
	if err != nil {
		return false, err
	}

	if err := s.deliver(ctx, code); err != nil {
		s.logger.WarnContext(ctx, "challenge delivery failed; stored code left in place",
			slog.String("purpose", s.purpose),
			slog.String("email", s.email),
			slog.Any("error", err),
		)
		if isContextErr(err) {
			return true, err
		}
		return true, fmt.Errorf("%w: %w", s.deliveryFail, err)
	}
	return true, nil
}

func noLock(context.Context, string) (func(), error) { return func() {}, nil }
