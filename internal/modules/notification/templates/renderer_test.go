package templates

import (
	"errors"
	"testing"

	"github.com/saransh1220/ev-notify/internal/modules/notification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_FallbackForUnknownType(t *testing.T) {
	r := New()

	first, err := r.Render("unknown_type_xyz", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Notification", first.Title)
	assert.Equal(t, "hello", first.Message)
	assert.Equal(t, domain.VariantInfo, first.Variant)
	assert.Equal(t, 6000, first.TTLMs)
	assert.Equal(t, "unknown_type_xyz", first.Type)
	assert.NotEmpty(t, first.ID)

	second, err := r.Render("unknown_type_xyz", "hello")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestRender_FallbackSerializesNonStringPayload(t *testing.T) {
	r := New()

	out, err := r.Render("mystery", map[string]any{"a": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out.Message)

	_, err = r.Render("mystery", "")
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestRender_BuiltinTemplates(t *testing.T) {
	r := New()
	tests := []struct {
		typ     string
		data    map[string]any
		title   string
		message string
		variant domain.Variant
		ttl     int
	}{
		{"info", map[string]any{"message": "hello"}, "Information", "hello", domain.VariantInfo, 6000},
		{"charger_error", map[string]any{}, "Charging error", "Unknown error", domain.VariantError, 9000},
		{"promo", map[string]any{"text": "50% off"}, "Promotion", "50% off", domain.VariantWarning, 8000},
		{"auth_login", map[string]any{"email": "a@b.com"}, "Signed in", "Signed in as a@b.com", domain.VariantSuccess, 8000},
		{"reservation_success", map[string]any{"reservationId": "R1", "when": "today", "station": "S1"}, "Reservation confirmed", "ID: R1 · today · S1", domain.VariantSuccess, 7000},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			out, err := r.Render(tt.typ, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, out.Type)
			assert.Equal(t, tt.title, out.Title)
			assert.Equal(t, tt.message, out.Message)
			assert.Equal(t, tt.variant, out.Variant)
			assert.Equal(t, tt.ttl, out.TTLMs)
			assert.NotEmpty(t, out.ID)
		})
	}
}

func TestRender_MalformedPayloadIsClientError(t *testing.T) {
	r := New()

	_, err := r.Render("info", "not an object")
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = r.Render("info", map[string]any{})
	assert.ErrorIs(t, err, domain.ErrInvalidPayload, "empty message")

	_, err = r.Render("reservation_success", map[string]any{})
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestRegister(t *testing.T) {
	r := New()
	r.Register("custom_ok", func(f Fields) (domain.Rendered, error) {
		return domain.Rendered{Message: "custom " + f.String("n")}, nil
	})
	r.Register("custom_fail", func(Fields) (domain.Rendered, error) {
		return domain.Rendered{}, errors.New("boom")
	})

	out, err := r.Render("custom_ok", map[string]any{"n": "1"})
	require.NoError(t, err)
	assert.Equal(t, "custom 1", out.Message)
	assert.Equal(t, domain.VariantInfo, out.Variant)

	_, err = r.Render("custom_fail", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}
