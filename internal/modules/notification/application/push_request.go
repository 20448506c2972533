package application

import (
	"bytes"

	"github.com/google/uuid"
	"github.com/saransh1220/ev-notify/internal/modules/notification/domain"
)

// PushRequest is the self-service push body. Exactly one of three shapes is used,
// checked in order: a complete rendered record, an ad hoc toast, or a typed event.
type PushRequest struct {
	Rendered *domain.Rendered `json:"rendered,omitempty"`

	ID      string         `json:"id,omitempty"`
	Type    string         `json:"type,omitempty"`
	Title   string         `json:"title,omitempty"`
	Message string         `json:"message,omitempty"`
	Variant domain.Variant `json:"variant,omitempty"`
	TTLMs   int            `json:"ttlMs,omitempty"`
	Icon    string         `json:"icon,omitempty"`

	Data domain.Payload `json:"data,omitempty"`
}

// Resolve turns the request into a normalized rendered record.
func (p PushRequest) Resolve(r Renderer) (domain.Rendered, error) {
	switch {
	case p.Rendered != nil && p.Rendered.Message != "":
		return finish(*p.Rendered)

	case p.Message != "":
		return finish(domain.Rendered{
			ID:      p.ID,
			Type:    p.Type,
			Title:   p.Title,
			Message: p.Message,
			Variant: p.Variant,
			TTLMs:   p.TTLMs,
			Icon:    p.Icon,
		})

	case p.Type != "":
		data, err := p.payload().Decode()
		if err != nil {
			return domain.Rendered{}, err
		}
		return r.Render(p.Type, data)
	}
	return domain.Rendered{}, domain.ErrInvalidPushBody
}

// payload treats a missing or null data field as an empty object.
func (p PushRequest) payload() domain.Payload {
	d := bytes.TrimSpace(p.Data)
	if bytes.Equal(d, []byte("null")) {
		return nil
	}
	return domain.Payload(d)
}

func finish(rd domain.Rendered) (domain.Rendered, error) {
	if rd.ID == "" {
		rd.ID = uuid.NewString()
	}
	if rd.Type == "" {
		rd.Type = domain.CustomType
	}
	if err := rd.Normalize(); err != nil {
		return domain.Rendered{}, err
	}
	return rd, nil
}
