// Package notify holds Notifier implementations that hand challenge codes to
// a delivery channel.
package notify

import (
	"context"
	"log/slog"

	"github.com/MrEthical07/credgate/account"
)

// LogNotifier writes each code to a logger instead of sending it. It exists
// for local development and the CLI; never point it at a shared log sink.
type LogNotifier struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogNotifier returns a notifier logging at Info on logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger, level: slog.LevelInfo}
}

// WithLevel returns a copy logging at lvl.
func (n *LogNotifier) WithLevel(lvl slog.Level) *LogNotifier {
	cp := *n
	cp.level = lvl
	return &cp
}

func (n *LogNotifier) SendChallengeCode(ctx context.Context, email, code string, purpose account.Kind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.LogAttrs(ctx, n.level, "challenge code issued",
		slog.String("email", email),
		slog.String("purpose", purpose.String()),
		slog.String("code", code),
	)
	return nil
}
