// Package templates turns an event type and its payload into a display-ready toast.
package templates

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/saransh1220/ev-notify/internal/modules/notification/domain"
)

// Fields is the decoded object payload handed to a template.
type Fields map[string]any

// String returns the field as a string, or "" when missing or not a string.
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Func builds the display part of a toast. The renderer attaches id and type.
type Func func(f Fields) (domain.Rendered, error)

// Renderer holds named templates. The zero value is not usable; call New.
type Renderer struct {
	mu        sync.RWMutex
	templates map[string]Func
	newID     func() string
}

// New returns a renderer preloaded with the built-in templates.
func New() *Renderer {
	r := &Renderer{
		templates: make(map[string]Func, len(builtin)),
		newID:     func() string { return uuid.NewString() },
	}
	for name, fn := range builtin {
		r.templates[name] = fn
	}
	return r
}

// Register adds or replaces the template for typ.
func (r *Renderer) Register(typ string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[typ] = fn
}

// Render produces the toast for typ. Unknown types fall back to a generic rendering
// of the payload; template failures are reported as domain.ErrInvalidPayload.
func (r *Renderer) Render(typ string, data any) (domain.Rendered, error) {
	r.mu.RLock()
	fn, ok := r.templates[typ]
	r.mu.RUnlock()

	if !ok {
		msg, err := fallbackMessage(data)
		if err != nil {
			return domain.Rendered{}, err
		}
		return domain.Rendered{
			ID:      r.newID(),
			Type:    typ,
			Title:   "Notification",
			Message: msg,
			Variant: domain.VariantInfo,
			TTLMs:   domain.DefaultTTLMs,
		}, nil
	}

	fields, ok := data.(map[string]any)
	if !ok && data != nil {
		return domain.Rendered{}, fmt.Errorf("%w: template %q expects an object payload", domain.ErrInvalidPayload, typ)
	}
	out, err := fn(Fields(fields))
	if err != nil {
		return domain.Rendered{}, fmt.Errorf("%w: template %q: %v", domain.ErrInvalidPayload, typ, err)
	}
	out.ID = r.newID()
	out.Type = typ
	if err := out.Normalize(); err != nil {
		return domain.Rendered{}, fmt.Errorf("template %q: %w", typ, err)
	}
	return out, nil
}

func fallbackMessage(data any) (string, error) {
	if s, ok := data.(string); ok {
		if s == "" {
			return "", fmt.Errorf("%w: message is required", domain.ErrInvalidPayload)
		}
		return s, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return string(b), nil
}
