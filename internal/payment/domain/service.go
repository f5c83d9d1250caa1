package domain

import (
	"context"
	"errors"
)

var (
	ErrSignatureInvalid    = errors.New("signature_invalid")
	ErrDuplicateEvent      = errors.New("duplicate_event")
	ErrUnknownEventType    = errors.New("unknown_event_type")
	ErrInvalidPayload      = errors.New("invalid_payload")
	ErrMissingOrganization = errors.New("missing_organization_metadata")
	ErrUnknownOrganization = errors.New("organization_not_found")
)

// Processor is the webhook ingestion pipeline. Capture persists the raw event
// so the HTTP acknowledgment can be sent safely; Process verifies, decodes and
// applies it; ProcessPending replays rows left pending by a crash or a
// transient downstream failure.
type Processor interface {
	Capture(ctx context.Context, body []byte, signature string) (*RawEvent, error)
	Process(ctx context.Context, raw *RawEvent) error
	ProcessPending(ctx context.Context, limit int) (int, error)
}
