package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Meta carries the attribution fields every recognized event shares. OrgID is
// always set; the reference ids are zero when the processor omitted them.
type Meta struct {
	EventID        string
	OrgID          snowflake.ID
	PlanID         string
	InvoiceID      snowflake.ID
	SubscriptionID snowflake.ID
}

// Event is the decoded webhook payload, one concrete type per recognized
// event type. The unexported method seals the set so the router's type switch
// is exhaustive and unknown types are rejected at parse time.
type Event interface {
	EventMeta() Meta
	Type() string
	sealed()
}

type SubscriptionCreated struct {
	Meta     Meta
	Amount   int64
	Currency string
	Trial    bool
}

type SubscriptionPayment struct {
	Meta     Meta
	Amount   int64
	Currency string
}

type SubscriptionFailure struct {
	Meta   Meta
	Reason string
}

type SubscriptionSuspended struct {
	Meta Meta
}

type SubscriptionCanceled struct {
	Meta   Meta
	Reason string
}

type ChargeUpdated struct {
	Meta Meta
}

type ChargeFinished struct {
	Meta      Meta
	Succeeded bool
}

type RefundFinished struct {
	Meta   Meta
	Amount int64
}

func (e *SubscriptionCreated) EventMeta() Meta   { return e.Meta }
func (e *SubscriptionPayment) EventMeta() Meta   { return e.Meta }
func (e *SubscriptionFailure) EventMeta() Meta   { return e.Meta }
func (e *SubscriptionSuspended) EventMeta() Meta { return e.Meta }
func (e *SubscriptionCanceled) EventMeta() Meta  { return e.Meta }
func (e *ChargeUpdated) EventMeta() Meta         { return e.Meta }
func (e *ChargeFinished) EventMeta() Meta        { return e.Meta }
func (e *RefundFinished) EventMeta() Meta        { return e.Meta }

func (*SubscriptionCreated) Type() string   { return TypeSubscriptionCreated }
func (*SubscriptionPayment) Type() string   { return TypeSubscriptionPayment }
func (*SubscriptionFailure) Type() string   { return TypeSubscriptionFailure }
func (*SubscriptionSuspended) Type() string { return TypeSubscriptionSuspended }
func (*SubscriptionCanceled) Type() string  { return TypeSubscriptionCanceled }
func (*ChargeUpdated) Type() string         { return TypeChargeUpdated }
func (*ChargeFinished) Type() string        { return TypeChargeFinished }
func (*RefundFinished) Type() string        { return TypeRefundFinished }

func (*SubscriptionCreated) sealed()   {}
func (*SubscriptionPayment) sealed()   {}
func (*SubscriptionFailure) sealed()   {}
func (*SubscriptionSuspended) sealed() {}
func (*SubscriptionCanceled) sealed()  {}
func (*ChargeUpdated) sealed()         {}
func (*ChargeFinished) sealed()        {}
func (*RefundFinished) sealed()        {}

// Recognized processor event types.
const (
	TypeSubscriptionCreated   = "subscription_created"
	TypeSubscriptionPayment   = "subscription_payment"
	TypeSubscriptionFailure   = "subscription_failure"
	TypeSubscriptionSuspended = "subscription_suspended"
	TypeSubscriptionCanceled  = "subscription_canceled"
	TypeChargeUpdated         = "charge_updated"
	TypeChargeFinished        = "charge_finished"
	TypeRefundFinished        = "refund_finished"
)

// envelope mirrors the processor's wire shape.
type envelope struct {
	Type string `json:"type"`
	Data struct {
		ID       string `json:"id"`
		Metadata struct {
			OrganizationID string `json:"organization_id"`
			PlanID         string `json:"plan_id"`
			InvoiceID      string `json:"invoice_id"`
			SubscriptionID string `json:"subscription_id"`
		} `json:"metadata"`
		SubscriptionID string          `json:"subscription_id"`
		Amount         float64         `json:"amount"`
		Currency       string          `json:"currency"`
		Status         string          `json:"status"`
		Error          json.RawMessage `json:"error"`
		Reason         string          `json:"reason"`
	} `json:"data"`
}

// ParsePayload decodes the raw webhook body into a typed event. It returns
// ErrInvalidPayload for malformed JSON or a missing event id,
// ErrUnknownEventType for a type outside the recognized set, and
// ErrMissingOrganization when the event cannot be attributed to a tenant.
func ParsePayload(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if strings.TrimSpace(env.Data.ID) == "" {
		return nil, fmt.Errorf("%w: missing data.id", ErrInvalidPayload)
	}

	orgID, err := parseID(env.Data.Metadata.OrganizationID)
	if err != nil || orgID == 0 {
		return nil, fmt.Errorf("%w: organization_id %q", ErrMissingOrganization, env.Data.Metadata.OrganizationID)
	}

	subRef := env.Data.Metadata.SubscriptionID
	if subRef == "" {
		subRef = env.Data.SubscriptionID
	}

	meta := Meta{
		EventID: env.Data.ID,
		OrgID:   orgID,
		PlanID:  env.Data.Metadata.PlanID,
	}
	// Reference ids are best-effort: an unparsable one degrades to "absent"
	// rather than failing the whole event.
	meta.InvoiceID, _ = parseID(env.Data.Metadata.InvoiceID)
	meta.SubscriptionID, _ = parseID(subRef)

	status := strings.ToLower(strings.TrimSpace(env.Data.Status))

	switch env.Type {
	case TypeSubscriptionCreated:
		return &SubscriptionCreated{
			Meta:     meta,
			Amount:   int64(env.Data.Amount),
			Currency: env.Data.Currency,
			Trial:    status == "trialing" || status == "trial",
		}, nil
	case TypeSubscriptionPayment:
		return &SubscriptionPayment{
			Meta:     meta,
			Amount:   int64(env.Data.Amount),
			Currency: env.Data.Currency,
		}, nil
	case TypeSubscriptionFailure:
		reason := env.Data.Reason
		if reason == "" && len(env.Data.Error) > 0 {
			reason = string(env.Data.Error)
		}
		return &SubscriptionFailure{Meta: meta, Reason: reason}, nil
	case TypeSubscriptionSuspended:
		return &SubscriptionSuspended{Meta: meta}, nil
	case TypeSubscriptionCanceled:
		return &SubscriptionCanceled{Meta: meta, Reason: env.Data.Reason}, nil
	case TypeChargeUpdated:
		return &ChargeUpdated{Meta: meta}, nil
	case TypeChargeFinished:
		return &ChargeFinished{
			Meta:      meta,
			Succeeded: status == "paid" || status == "succeeded",
		}, nil
	case TypeRefundFinished:
		return &RefundFinished{Meta: meta, Amount: int64(env.Data.Amount)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
	}
}

// PeekEventID extracts the processor event id without validating the rest of
// the payload. Used at capture time so the durable row is searchable; returns
// "" for anything unreadable.
func PeekEventID(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return strings.TrimSpace(env.Data.ID)
}

func parseID(s string) (snowflake.ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return snowflake.ParseString(s)
}
