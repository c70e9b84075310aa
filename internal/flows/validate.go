package flows

import (
	"context"
	"time"
)

type ValidateMetrics struct {
	TokenValid      int
	TokenInvalid    int
	ValidateLatency int
}

type ValidateErrors struct {
	EngineNotReady error
}

type ValidateDeps struct {
	ParseToken func(string) (string, error)
	Now        func() time.Time

	Observer
	Metrics ValidateMetrics
	Errors  ValidateErrors
}

// RunValidateToken returns the identity bound to token. Parser failures are
// returned unchanged. Validation is stateless and emits no audit events.
func RunValidateToken(_ context.Context, token string, deps ValidateDeps) (string, error) {
	deps.Observer.normalize()
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ParseToken == nil {
		return "", deps.Errors.EngineNotReady
	}

	start := deps.Now()
	identity, err := deps.ParseToken(token)
	deps.Observe(deps.Metrics.ValidateLatency, deps.Now().Sub(start))
	if err != nil {
		deps.MetricInc(deps.Metrics.TokenInvalid)
		return "", err
	}

	deps.MetricInc(deps.Metrics.TokenValid)
	return identity, nil
}
