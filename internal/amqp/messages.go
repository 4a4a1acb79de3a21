package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Routing keys of the events published on the ledger exchange.
const (
	EventOccurrenceMaterialized = "occurrence.materialized"
	EventCouponRedeemed         = "coupon.redeemed"
	EventTemplateDeleted        = "template.deleted"
)

// RoutingKeys lists every event type the queue is bound to.
var RoutingKeys = []string{EventOccurrenceMaterialized, EventCouponRedeemed, EventTemplateDeleted}

// Event is the envelope of every message. Payload holds one of the typed
// payloads below, selected by Type.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	AccountID  string          `json:"accountId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

type OccurrenceMaterialized struct {
	OccurrenceID string `json:"occurrenceId"`
	TemplateID   string `json:"templateId"`
	Amount       string `json:"amount"`
	Date         string `json:"date"`
	ChildID      string `json:"childId,omitempty"`
}

type CouponRedeemed struct {
	RedemptionID  string `json:"redemptionId"`
	CouponID      string `json:"couponId"`
	Code          string `json:"code"`
	PlanSlug      string `json:"planSlug"`
	BillingPeriod string `json:"billingPeriod"`
	Discount      string `json:"discount"`
	FinalPrice    string `json:"finalPrice"`
}

type TemplateDeleted struct {
	TemplateID string `json:"templateId"`
	Unlinked   int64  `json:"unlinked"`
}

// NewEvent wraps payload in an envelope with a fresh message id.
func NewEvent(eventType, accountID string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		AccountID:  accountID,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	}, nil
}

// ToJSON converts the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an envelope and checks it carries a known type.
func EventFromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	switch e.Type {
	case EventOccurrenceMaterialized, EventCouponRedeemed, EventTemplateDeleted:
	default:
		return Event{}, fmt.Errorf("unknown event type %q", e.Type)
	}
	return e, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
