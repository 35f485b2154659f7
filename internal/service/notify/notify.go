// Package notify announces fired bells to optional side channels: an MQTT
// topic watched by the signage screens and a GPIO relay wired to a physical
// bell.
//
// Announcements are best effort. A failing notifier is logged by the caller
// and never affects the ledger.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	domain "github.com/oshokin/bell-scheduler/internal/domain/alarm"
)

// Event describes one fired alarm occurrence.
type Event struct {
	// Alarm is the alarm that fired.
	Alarm domain.Alarm
	// Occurrence is when the tick observed it.
	Occurrence domain.Occurrence
	// FiredAt is the wall-clock time of the tick.
	FiredAt time.Time
	// Played reports whether a player was started.
	Played bool
	// Actor is the appliance that fired the alarm.
	Actor Actor
}

// Notifier receives fired alarm events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
	Close() error
}

// Payload is the JSON document published for an event.
type Payload struct {
	AlarmID string `json:"alarm_id"`
	Label   string `json:"label"`
	Sound   string `json:"sound"`
	Day     string `json:"day"`
	Time    string `json:"time"`
	Date    string `json:"date"`
	FiredAt string `json:"fired_at"`
	Played  bool   `json:"played"`
	Host    string `json:"host,omitempty"`
	User    string `json:"user,omitempty"`
}

// FormatPayload renders the event as JSON.
func FormatPayload(event Event) ([]byte, error) {
	return json.Marshal(Payload{
		AlarmID: event.Alarm.ID,
		Label:   event.Alarm.DisplayLabel(),
		Sound:   event.Alarm.Sound,
		Day:     event.Occurrence.Day.String(),
		Time:    event.Occurrence.Time.String(),
		Date:    event.Occurrence.Date,
		FiredAt: event.FiredAt.UTC().Format(time.RFC3339),
		Played:  event.Played,
		Host:    event.Actor.Hostname,
		User:    event.Actor.Username,
	})
}

// Multi fans an event out to several notifiers.
type Multi []Notifier

// Notify calls every notifier and joins their errors.
func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error

	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Close closes every notifier and joins their errors.
func (m Multi) Close() error {
	var errs []error

	for _, n := range m {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
