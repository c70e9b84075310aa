package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/credgate/account"
)

func TestLogNotifierWritesCode(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, n.SendChallengeCode(context.Background(), "a@example.com", "482913", account.KindReset))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "challenge code issued", line["msg"])
	assert.Equal(t, "a@example.com", line["email"])
	assert.Equal(t, "reset", line["purpose"])
	assert.Equal(t, "482913", line["code"])
}

func TestLogNotifierRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	n := NewLogNotifier(logger).WithLevel(slog.LevelDebug)

	require.NoError(t, n.SendChallengeCode(context.Background(), "a@example.com", "119933", account.KindVerify))
	assert.Empty(t, buf.String())
}

func TestLogNotifierCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewLogNotifier(nil).SendChallengeCode(ctx, "a@example.com", "119933", account.KindVerify)
	assert.ErrorIs(t, err, context.Canceled)
}
