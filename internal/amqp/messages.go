package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event types carried on the finarth exchange
const (
	TypeUserRegistered = "user.registered"
	TypeHoldingChanged = "holding.changed"
)

// Holding change actions
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

var (
	ErrUnknownEvent = errors.New("unknown event type")
	// ErrPermanent marks a handler failure that redelivery cannot fix.
	ErrPermanent = errors.New("permanent failure")
)

// Permanent wraps err so the consumer drops the message instead of requeueing it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Event is the envelope for every message; Payload holds the typed body.
type Event struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// UserRegistered asks the worker to send the verification mail.
type UserRegistered struct {
	UserID            int64  `json:"userId"`
	Email             string `json:"email"`
	VerificationToken string `json:"verificationToken"`
}

// HoldingChanged carries only ids; the worker reloads holdings from the database.
type HoldingChanged struct {
	UserID    int64  `json:"userId"`
	HoldingID int64  `json:"holdingId"`
	Symbol    string `json:"symbol,omitempty"`
	Action    string `json:"action"`
}

func newEvent(eventType string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Timestamp: time.Now().UTC(), Payload: body}, nil
}

func NewUserRegistered(p UserRegistered) (Event, error) {
	return newEvent(TypeUserRegistered, p)
}

func NewHoldingChanged(p HoldingChanged) (Event, error) {
	return newEvent(TypeHoldingChanged, p)
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an envelope and rejects unknown types and payloads
// that do not decode into the type's body.
func EventFromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	switch e.Type {
	case TypeUserRegistered, TypeHoldingChanged:
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
	}
	if len(e.Payload) == 0 {
		return Event{}, fmt.Errorf("%s: empty payload", e.Type)
	}
	var err error
	switch e.Type {
	case TypeUserRegistered:
		_, err = e.UserRegistered()
	case TypeHoldingChanged:
		_, err = e.HoldingChanged()
	}
	if err != nil {
		return Event{}, fmt.Errorf("%s: malformed payload: %w", e.Type, err)
	}
	return e, nil
}

func (e Event) UserRegistered() (UserRegistered, error) {
	var p UserRegistered
	if e.Type != TypeUserRegistered {
		return p, fmt.Errorf("event %s is not %s", e.Type, TypeUserRegistered)
	}
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

func (e Event) HoldingChanged() (HoldingChanged, error) {
	var p HoldingChanged
	if e.Type != TypeHoldingChanged {
		return p, fmt.Errorf("event %s is not %s", e.Type, TypeHoldingChanged)
	}
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}
