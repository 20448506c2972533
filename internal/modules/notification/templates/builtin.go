package templates

import (
	"errors"
	"fmt"

	"github.com/saransh1220/ev-notify/internal/modules/notification/domain"
)

var builtin = map[string]Func{
	"reservation_success": reservationSuccess,
	"charger_error":       chargerError,
	"info":                info,
	"promo":               promo,
	"auth_login":          authLogin,
}

func reservationSuccess(f Fields) (domain.Rendered, error) {
	id := f.String("reservationId")
	if id == "" {
		return domain.Rendered{}, errors.New("reservationId is required")
	}
	return domain.Rendered{
		Title:   "Reservation confirmed",
		Message: fmt.Sprintf("ID: %s · %s · %s", id, f.String("when"), f.String("station")),
		Variant: domain.VariantSuccess,
		Icon:    "check-circle",
		TTLMs:   7000,
	}, nil
}

func chargerError(f Fields) (domain.Rendered, error) {
	reason := f.String("reason")
	if reason == "" {
		reason = "Unknown error"
	}
	return domain.Rendered{
		Title:   "Charging error",
		Message: reason,
		Variant: domain.VariantError,
		Icon:    "alert-triangle",
		TTLMs:   9000,
	}, nil
}

func info(f Fields) (domain.Rendered, error) {
	return domain.Rendered{
		Title:   "Information",
		Message: f.String("message"),
		Variant: domain.VariantInfo,
		Icon:    "info",
		TTLMs:   6000,
	}, nil
}

func promo(f Fields) (domain.Rendered, error) {
	return domain.Rendered{
		Title:   "Promotion",
		Message: f.String("text"),
		Variant: domain.VariantWarning,
		Icon:    "star",
		TTLMs:   8000,
	}, nil
}

func authLogin(f Fields) (domain.Rendered, error) {
	msg := "Signed in"
	if email := f.String("email"); email != "" {
		msg = "Signed in as " + email
	}
	return domain.Rendered{
		Title:   "Signed in",
		Message: msg,
		Variant: domain.VariantSuccess,
		TTLMs:   8000,
	}, nil
}
