package countdown

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/models"
)

const (
	OTP    = "otp"
	Resend = "resend"
)

// Definition describes a named countdown.
type Definition struct {
	Name     string
	Duration time.Duration
	// Exclusive countdowns refuse to restart while time remains.
	Exclusive bool
}

// DefaultDefinitions returns the OTP expiry and resend cooldown timers.
func DefaultDefinitions(otp, resend time.Duration) []Definition {
	return []Definition{
		{Name: OTP, Duration: otp},
		{Name: Resend, Duration: resend, Exclusive: true},
	}
}

// Timers runs named countdowns per subject, stored under
// countdown:<name>:<subject>.
type Timers struct {
	countdown *Countdown
	defs      map[string]Definition
}

func NewTimers(c *Countdown, defs ...Definition) *Timers {
	t := &Timers{countdown: c, defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		t.defs[d.Name] = d
	}
	return t
}

func Key(name, subject string) string {
	return fmt.Sprintf("countdown:%s:%s", name, subject)
}

// Names lists the configured countdowns.
func (t *Timers) Names() []string {
	names := make([]string, 0, len(t.defs))
	for name := range t.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *Timers) Start(ctx context.Context, name, subject string) (models.CountdownStatus, error) {
	def, err := t.definition(name)
	if err != nil {
		return models.CountdownStatus{}, err
	}

	key := Key(name, subject)
	if !def.Exclusive {
		if _, err := t.countdown.Start(ctx, key, def.Duration); err != nil {
			return models.CountdownStatus{}, err
		}
		return t.Status(ctx, name, subject)
	}

	// a countdown that elapses between the refused start and the read
	// below leaves remaining at 0; try once more before giving up
	for attempt := 0; attempt < 2; attempt++ {
		_, ok, err := t.countdown.StartIfIdle(ctx, key, def.Duration)
		if err != nil {
			return models.CountdownStatus{}, err
		}
		if ok {
			return t.Status(ctx, name, subject)
		}
		remaining, _, err := t.countdown.Remaining(ctx, key)
		if err != nil {
			return models.CountdownStatus{}, err
		}
		if remaining > 0 {
			return models.CountdownStatus{}, tooSoon(name, remaining)
		}
	}
	return models.CountdownStatus{}, tooSoon(name, 1)
}

func tooSoon(name string, remaining int) error {
	return apperrors.
		Validation(name+"_too_soon", fmt.Sprintf("Please wait %d seconds before trying again", remaining)).
		WithDetail("remaining_seconds", remaining)
}

func (t *Timers) Status(ctx context.Context, name, subject string) (models.CountdownStatus, error) {
	if _, err := t.definition(name); err != nil {
		return models.CountdownStatus{}, err
	}

	remaining, expiresAt, err := t.countdown.Remaining(ctx, Key(name, subject))
	if err != nil {
		return models.CountdownStatus{}, err
	}
	status := models.CountdownStatus{Name: name, Active: remaining > 0, RemainingSeconds: remaining}
	if status.Active {
		status.ExpiresAt = expiresAt.UTC()
	}
	return status, nil
}

func (t *Timers) Cancel(ctx context.Context, name, subject string) error {
	if _, err := t.definition(name); err != nil {
		return err
	}
	return t.countdown.Cancel(ctx, Key(name, subject))
}

func (t *Timers) definition(name string) (Definition, error) {
	def, ok := t.defs[name]
	if !ok {
		return Definition{}, apperrors.NotFound("countdown_not_found", fmt.Sprintf("Unknown countdown %q", name))
	}
	return def, nil
}
