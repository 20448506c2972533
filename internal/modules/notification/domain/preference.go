package domain

import (
	"time"

	"github.com/google/uuid"
)

type Channels struct {
	Toast bool `json:"toast"`
	Email bool `json:"email"`
}

type Preference struct {
	UserID    uuid.UUID `json:"-" db:"user_id"`
	Muted     bool      `json:"muted" db:"muted"`
	Channels  Channels  `json:"channels"`
	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// DefaultPreference is what a user gets on first access.
func DefaultPreference(userID uuid.UUID) Preference {
	return Preference{UserID: userID, Channels: Channels{Toast: true}}
}

// ToastEnabled is false when the user muted everything or switched the toast channel off.
func (p Preference) ToastEnabled() bool {
	return !p.Muted && p.Channels.Toast
}

type ChannelsPatch struct {
	Toast *bool `json:"toast,omitempty"`
	Email *bool `json:"email,omitempty"`
}

// PreferencePatch is a partial update; nil fields keep their stored value.
type PreferencePatch struct {
	Muted    *bool          `json:"muted,omitempty"`
	Channels *ChannelsPatch `json:"channels,omitempty"`
}

func (p PreferencePatch) toast() *bool {
	if p.Channels == nil {
		return nil
	}
	return p.Channels.Toast
}

func (p PreferencePatch) email() *bool {
	if p.Channels == nil {
		return nil
	}
	return p.Channels.Email
}

// Fields flattens the patch into the column-level optional values.
func (p PreferencePatch) Fields() (muted, toast, email *bool) {
	return p.Muted, p.toast(), p.email()
}

// Apply merges the patch into pref.
func (p PreferencePatch) Apply(pref Preference) Preference {
	if p.Muted != nil {
		pref.Muted = *p.Muted
	}
	if t := p.toast(); t != nil {
		pref.Channels.Toast = *t
	}
	if e := p.email(); e != nil {
		pref.Channels.Email = *e
	}
	return pref
}
