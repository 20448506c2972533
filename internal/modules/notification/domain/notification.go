package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Variant string

const (
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
	VariantInfo    Variant = "info"
	VariantWarning Variant = "warning"
)

// Valid reports whether v is one of the known toast variants.
func (v Variant) Valid() bool {
	switch v {
	case VariantSuccess, VariantError, VariantInfo, VariantWarning:
		return true
	}
	return false
}

type Target string

const (
	TargetUser Target = "user"
	TargetAll  Target = "all"
)

// DefaultTTLMs is the client display duration used when a template does not set one.
const DefaultTTLMs = 6000

// CustomType is the type recorded for ad hoc pushed toasts.
const CustomType = "Custom"

// Rendered is the display-ready toast handed to clients.
type Rendered struct {
	ID      string  `json:"id,omitempty"`
	Type    string  `json:"type,omitempty"`
	Title   string  `json:"title,omitempty"`
	Message string  `json:"message"`
	Variant Variant `json:"variant,omitempty"`
	TTLMs   int     `json:"ttlMs,omitempty"`
	Icon    string  `json:"icon,omitempty"`
}

// Normalize fills the default variant and validates the record.
func (r *Rendered) Normalize() error {
	if r.Message == "" {
		return fmt.Errorf("%w: message is required", ErrInvalidPayload)
	}
	if r.Variant == "" {
		r.Variant = VariantInfo
	}
	if !r.Variant.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidVariant, r.Variant)
	}
	return nil
}

func (r Rendered) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *Rendered) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	case nil:
		*r = Rendered{}
		return nil
	}
	return fmt.Errorf("rendered: unsupported scan type %T", src)
}

// Payload is the opaque JSON event data kept alongside a notification.
type Payload []byte

func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("{}"), nil
	}
	return p, nil
}

func (p *Payload) UnmarshalJSON(b []byte) error {
	*p = append((*p)[:0], b...)
	return nil
}

func (p Payload) Value() (driver.Value, error) {
	if len(p) == 0 {
		return "{}", nil
	}
	if !json.Valid(p) {
		return nil, errors.New("payload: invalid json")
	}
	return string(p), nil
}

func (p *Payload) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		*p = append((*p)[:0], v...)
	case string:
		*p = Payload(v)
	case nil:
		*p = nil
	default:
		return fmt.Errorf("payload: unsupported scan type %T", src)
	}
	return nil
}

// Decode unmarshals the payload into a generic value; an empty payload decodes to an empty object.
func (p Payload) Decode() (any, error) {
	if len(p) == 0 {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal(p, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return v, nil
}

type Notification struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Seq         int64      `json:"-" db:"seq"`
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	Target      Target     `json:"target" db:"target"`
	Type        string     `json:"type" db:"type"`
	Data        Payload    `json:"data" db:"data"`
	Rendered    Rendered   `json:"rendered" db:"rendered"`
	Suppressed  bool       `json:"suppressed" db:"suppressed"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// DeliveryRecord marks a broadcast notification as handed to one user.
type DeliveryRecord struct {
	NotificationID uuid.UUID  `db:"notification_id"`
	UserID         uuid.UUID  `db:"user_id"`
	DeliveredAt    time.Time  `db:"delivered_at"`
	ReadAt         *time.Time `db:"read_at"`
}
