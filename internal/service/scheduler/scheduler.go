package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "github.com/oshokin/bell-scheduler/internal/domain/alarm"
	"github.com/oshokin/bell-scheduler/internal/logger"
	"github.com/oshokin/bell-scheduler/internal/metrics"
	alarmrepo "github.com/oshokin/bell-scheduler/internal/repository/alarm"
	"github.com/oshokin/bell-scheduler/internal/repository/ledger"
	"github.com/oshokin/bell-scheduler/internal/service/notify"
)

// Failure stages reported in logs and metrics.
const (
	stageLock     = "lock"
	stageSource   = "source"
	stageAlarm    = "alarm"
	stagePlayback = "playback"
	stageLedger   = "ledger"
)

// errPanic wraps a value recovered while handling one alarm.
var errPanic = errors.New("panic while handling alarm")

// SoundResolver maps an alarm sound filename to a playable path.
type SoundResolver interface {
	Resolve(name string) (string, error)
}

// Player starts playback of a sound path without waiting for it.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Report summarises one tick.
type Report struct {
	// TickID correlates the log lines of one tick.
	TickID string
	// Occurrence is the day and minute the tick observed.
	Occurrence domain.Occurrence
	// Matched counts due alarms returned by the source.
	Matched int
	// Fired counts occurrences handled for the first time.
	Fired int
	// Suppressed counts due alarms skipped because they already fired.
	Suppressed int
	// Degraded counts fired alarms that could not produce audio.
	Degraded int
	// Failed counts absorbed errors.
	Failed int
	// Skipped is set when the ledger lock could not be taken.
	Skipped bool
	// Reset is set when the day-boundary reset ran.
	Reset bool
}

// Scheduler fires due alarms at most once per occurrence.
type Scheduler struct {
	// source provides enabled alarm definitions.
	source alarmrepo.Source
	// ledger records fired occurrences.
	ledger ledger.Ledger
	// sounds resolves sound filenames.
	sounds SoundResolver
	// player renders sounds audibly.
	player Player
	// notifier receives fired events; may be nil.
	notifier notify.Notifier
	// metrics records outcomes; may be nil.
	metrics *metrics.Registry
	// actor identifies this appliance in announcements.
	actor notify.Actor
	// location is the operational timezone.
	location *time.Location
	// now returns the current wall-clock time.
	now func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithNotifier announces fired alarms.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Scheduler) {
		s.notifier = n
	}
}

// WithActor names the appliance in announcements.
func WithActor(actor notify.Actor) Option {
	return func(s *Scheduler) {
		s.actor = actor
	}
}

// WithMetrics records tick outcomes.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithLocation sets the operational timezone.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a scheduler over its collaborators.
func New(
	source alarmrepo.Source,
	fired ledger.Ledger,
	sounds SoundResolver,
	player Player,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		source:   source,
		ledger:   fired,
		sounds:   sounds,
		player:   player,
		location: time.Local,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Tick runs one unit of work: every enabled alarm due at the current minute
// that is not yet in the ledger is played and recorded.
// Tick never fails; every error is classified, logged and counted.
func (s *Scheduler) Tick(ctx context.Context) *Report {
	startedAt := s.now()
	occurrence := domain.OccurrenceAt(startedAt, s.location)

	report := &Report{
		TickID:     uuid.NewString(),
		Occurrence: occurrence,
	}

	ctx = logger.WithKV(
		logger.WithName(ctx, "tick"),
		"tick_id", report.TickID,
		"day", occurrence.Day.String(),
		"time", occurrence.Time.String(),
	)

	unlock, err := s.ledger.Lock(ctx)
	if err != nil {
		report.Skipped = true
		report.Failed++

		s.metrics.IncFailure(stageLock)
		s.metrics.ObserveTick(metrics.ResultSkipped, startedAt, s.now().Sub(startedAt), 0)
		logger.ErrorKV(ctx, "Skipping tick, ledger is busy", "error", err)

		return report
	}

	defer unlock()

	s.ledger.Load(ctx, occurrence.Date)

	alarms, err := s.findDue(ctx, occurrence)
	if err != nil {
		report.Failed++

		s.metrics.IncFailure(stageSource)
		logger.ErrorKV(ctx, "Failed to query due alarms", "error", err)
	}

	for i := range alarms {
		s.handle(ctx, &alarms[i], occurrence, report)
	}

	// Persisted even when nothing fired so a healed ledger replaces a corrupt file.
	s.persist(ctx, report)

	if occurrence.Time.IsMidnight() {
		s.resetDay(ctx, occurrence, report)
	}

	s.metrics.ObserveTick(metrics.ResultOK, startedAt, s.now().Sub(startedAt), s.ledger.Len())

	summary := []any{
		"matched", report.Matched,
		"fired", report.Fired,
		"suppressed", report.Suppressed,
		"degraded", report.Degraded,
		"failed", report.Failed,
	}

	if report.Matched > 0 || report.Failed > 0 {
		logger.InfoKV(ctx, "Tick completed", summary...)
	} else {
		logger.DebugKV(ctx, "Tick completed", summary...)
	}

	return report
}

// findDue queries the source, turning a panic in the driver into an error.
func (s *Scheduler) findDue(ctx context.Context, o domain.Occurrence) (alarms []domain.Alarm, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in alarm source: %v", r)
		}
	}()

	return s.source.FindDue(ctx, o.Day, o.Time)
}

// handle processes one due alarm. A panic here only affects this alarm.
func (s *Scheduler) handle(ctx context.Context, alarm *domain.Alarm, o domain.Occurrence, report *Report) {
	ctx = logger.WithKV(ctx, "alarm_id", alarm.ID, "label", alarm.DisplayLabel())

	defer func() {
		if r := recover(); r != nil {
			s.recordError(ctx, report, stageAlarm, fmt.Errorf("%w: %v", errPanic, r))
		}
	}()

	if !alarm.DueAt(o) {
		logger.WarnKV(ctx, "Ignoring alarm that is not due", "alarm_day", alarm.Day.String(),
			"alarm_time", alarm.Time.String(), "enabled", alarm.Enabled)

		return
	}

	report.Matched++

	key := alarm.KeyAt(o)
	if s.ledger.Has(key) {
		report.Suppressed++

		s.metrics.IncSuppressed()
		logger.DebugKV(ctx, "Alarm already fired for this occurrence", "key", key.String())

		return
	}

	// Recorded before playback: once attempted, an occurrence counts as handled
	// even if the player fails or panics.
	s.ledger.MarkFired(key)

	report.Fired++

	s.metrics.IncFired()
	logger.InfoKV(ctx, "Triggering alarm", "sound", alarm.Sound, "key", key.String())

	played := s.play(ctx, alarm, report)

	s.announce(ctx, alarm, o, played)
}

// play resolves and starts the alarm's sound. It reports whether a player started.
func (s *Scheduler) play(ctx context.Context, alarm *domain.Alarm, report *Report) bool {
	if strings.TrimSpace(alarm.Sound) == "" {
		report.Degraded++

		s.metrics.IncDegraded(reasonNoSound)
		logger.WarnKV(ctx, "Alarm has no sound configured")

		return false
	}

	path, err := s.sounds.Resolve(alarm.Sound)
	if err == nil {
		err = s.player.Play(ctx, path)
	}

	if err != nil {
		s.recordError(ctx, report, stagePlayback, err)
		return false
	}

	return true
}

// announce forwards the fired event to the notifier.
func (s *Scheduler) announce(ctx context.Context, alarm *domain.Alarm, o domain.Occurrence, played bool) {
	if s.notifier == nil {
		return
	}

	event := notify.Event{
		Alarm:      *alarm,
		Occurrence: o,
		FiredAt:    s.now(),
		Played:     played,
		Actor:      s.actor,
	}

	if err := s.notifier.Notify(ctx, event); err != nil {
		s.metrics.IncNotifyFailure()
		logger.WarnKV(ctx, "Failed to announce alarm", "error", err)
	}
}

// persist flushes the ledger, logging failures.
func (s *Scheduler) persist(ctx context.Context, report *Report) {
	if err := s.ledger.Persist(ctx); err != nil {
		report.Failed++

		s.metrics.IncFailure(stageLedger)
		logger.ErrorKV(ctx, "Failed to persist ledger", "error", err)
	}
}

// resetDay empties the ledger at the day boundary. Keys recorded during this
// very minute are kept so a repeated midnight tick does not refire them.
func (s *Scheduler) resetDay(ctx context.Context, o domain.Occurrence, report *Report) {
	removed := s.ledger.Prune(func(key domain.Key) bool {
		return key.Matches(o)
	})

	s.persist(ctx, report)

	report.Reset = true

	logger.InfoKV(ctx, "Ledger cleared for new day", "removed", removed)
}

// recordError classifies err and logs it at the matching level.
func (s *Scheduler) recordError(ctx context.Context, report *Report, stage string, err error) {
	class := classify(err)

	if class.degraded {
		report.Degraded++

		s.metrics.IncDegraded(class.reason)
		logger.WarnKV(ctx, class.message, "reason", class.reason, "error", err)

		return
	}

	report.Failed++

	s.metrics.IncFailure(stage)
	logger.ErrorKV(ctx, "Alarm handling failed", "stage", stage, "error", err)
}
