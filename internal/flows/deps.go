package flows

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

// AuditFunc records one flow outcome. meta is evaluated lazily so flows can
// pass builders without paying for them when audit is disabled.
type AuditFunc func(ctx context.Context, event string, success bool, email, userID string, err error, meta func() map[string]string)

// Observer carries the side channels every flow reports into.
type Observer struct {
	MetricInc func(int)
	Observe   func(int, time.Duration)
	EmitAudit AuditFunc
	Logger    *slog.Logger
}

func (o *Observer) normalize() {
	if o.MetricInc == nil {
		o.MetricInc = func(int) {}
	}
	if o.Observe == nil {
		o.Observe = func(int, time.Duration) {}
	}
	if o.EmitAudit == nil {
		o.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

func passthrough(err error) error { return err }

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
