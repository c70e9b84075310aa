package credgate

import (
	"context"

	internalaudit "github.com/MrEthical07/credgate/internal/audit"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	email string,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if ip := clientIPFromContext(ctx); ip != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["ip"] = ip
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["request_id"] = rid
	}

	event := internalaudit.Event{
		Type:     eventType,
		Email:    email,
		UserID:   userID,
		Success:  success,
		Metadata: metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}
