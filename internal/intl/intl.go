package intl

import (
	"context"
	"time"
	_ "time/tzdata"

	"golang.org/x/text/message"

	"github.com/launchpad-web/launchpad/internal/identity"
)

// Intl is the per-request formatting handle. Not safe for concurrent use.
type Intl struct {
	bundle   *Bundle
	printer  *message.Printer
	location *time.Location
	firstDay time.Weekday
}

// New builds a handle over bundle using the given timezone and first day of week.
// Unknown timezones fall back to UTC.
func New(bundle *Bundle, timezone string, firstDayOfWeek int) *Intl {
	loc := time.UTC
	if timezone != "" {
		if l, err := time.LoadLocation(timezone); err == nil {
			loc = l
		}
	}
	firstDay := time.Sunday
	if firstDayOfWeek >= 0 && firstDayOfWeek <= 6 {
		firstDay = time.Weekday(firstDayOfWeek)
	}
	return &Intl{
		bundle:   bundle,
		printer:  message.NewPrinter(bundle.Tag, message.Catalog(bundle.catalog)),
		location: loc,
		firstDay: firstDay,
	}
}

// Load resolves the bundle for the user's preferences. Nil preferences use defaults.
func (c *Catalog) Load(ctx context.Context, prefs *identity.Preferences) (*Intl, error) {
	if prefs == nil {
		bundle, err := c.Bundle(ctx, "")
		if err != nil {
			return nil, err
		}
		return New(bundle, "", 0), nil
	}
	bundle, err := c.Bundle(ctx, prefs.Locale)
	if err != nil {
		return nil, err
	}
	return New(bundle, prefs.Timezone, prefs.FirstDayOfWeek), nil
}

// Locale returns the resolved locale tag.
func (i *Intl) Locale() string {
	return i.bundle.Tag.String()
}

// Message formats the message id, using fallback when the bundle lacks it.
func (i *Intl) Message(id, fallback string, args ...any) string {
	return i.printer.Sprintf(message.Key(id, fallback), args...)
}

// Sprintf formats with locale aware number rendering.
func (i *Intl) Sprintf(format string, args ...any) string {
	return i.printer.Sprintf(format, args...)
}

// Location returns the user's time zone.
func (i *Intl) Location() *time.Location {
	return i.location
}

// FirstDayOfWeek returns the user's configured week start.
func (i *Intl) FirstDayOfWeek() time.Weekday {
	return i.firstDay
}

// FormatDate renders t in the user's time zone.
func (i *Intl) FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(i.location).Format("02 Jan 2006 15:04")
}
