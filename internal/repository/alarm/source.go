package alarm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	domain "github.com/oshokin/bell-scheduler/internal/domain/alarm"
	"github.com/oshokin/bell-scheduler/internal/logger"
)

// Source is the read-only alarm feed consumed by the scheduler.
type Source interface {
	// FindDue returns enabled alarms configured for exactly day and time.
	FindDue(ctx context.Context, day domain.Weekday, at domain.ClockTime) ([]domain.Alarm, error)
	// List returns every alarm, enabled or not.
	List(ctx context.Context) ([]domain.Alarm, error)
}

// Dialect names a supported SQL flavour.
type Dialect string

const (
	// DialectSQLite reads the embedded modernc.org/sqlite database.
	DialectSQLite Dialect = "sqlite"
	// DialectPostgres reads PostgreSQL through pgx.
	DialectPostgres Dialect = "postgres"
)

// ErrUnknownDialect is returned for drivers other than sqlite and postgres.
var ErrUnknownDialect = errors.New("unknown sql dialect")

// columns are cast to text so TIME and UUID columns scan identically in both dialects.
const columns = `CAST(id AS TEXT), day, CAST(time AS TEXT), label, sound, enabled`

// SQLSource queries the alarms table.
type SQLSource struct {
	// db is the open database handle.
	db *sql.DB
	// dialect selects placeholder syntax.
	dialect Dialect
	// owned reports whether Close must close db.
	owned bool
}

// Open connects to the database with the dialect's driver.
func Open(ctx context.Context, dialect Dialect, dsn string) (*SQLSource, error) {
	driver, err := driverName(dialect)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dataSource(dialect, dsn))
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}

	source := NewSQLSource(db, dialect)
	source.owned = true

	return source, nil
}

// NewSQLSource wraps an existing handle. The caller keeps ownership of db.
func NewSQLSource(db *sql.DB, dialect Dialect) *SQLSource {
	return &SQLSource{
		db:      db,
		dialect: dialect,
	}
}

// Close releases the handle when Open created it.
func (s *SQLSource) Close() error {
	if s == nil || s.db == nil || !s.owned {
		return nil
	}

	return s.db.Close()
}

// FindDue returns the enabled alarms for day at the given minute.
// TIME columns are compared both as HH:MM and HH:MM:SS.
func (s *SQLSource) FindDue(ctx context.Context, day domain.Weekday, at domain.ClockTime) ([]domain.Alarm, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM alarms WHERE enabled = TRUE AND day = %s AND (time = %s OR time = %s) ORDER BY id`,
		columns, s.placeholder(1), s.placeholder(2), s.placeholder(3),
	)

	alarms, err := s.query(ctx, query, day.String(), at.String(), at.WithSeconds())
	if err != nil {
		return nil, fmt.Errorf("find due alarms: %w", err)
	}

	return alarms, nil
}

// List returns every alarm ordered for display.
func (s *SQLSource) List(ctx context.Context) ([]domain.Alarm, error) {
	query := fmt.Sprintf(`SELECT %s FROM alarms ORDER BY time, day, id`, columns)

	alarms, err := s.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}

	return alarms, nil
}

// query scans rows into alarms, skipping rows that violate the data model.
func (s *SQLSource) query(ctx context.Context, query string, args ...any) ([]domain.Alarm, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = rows.Close()
	}()

	var alarms []domain.Alarm

	for rows.Next() {
		var (
			id, day, clock, sound string
			label                 sql.NullString
			enabled               bool
		)

		if err = rows.Scan(&id, &day, &clock, &label, &sound, &enabled); err != nil {
			return nil, fmt.Errorf("scan alarm: %w", err)
		}

		alarm, err := toDomain(id, day, clock, label.String, sound, enabled)
		if err != nil {
			logger.WarnKV(ctx, "Skipping invalid alarm row", "alarm_id", id, "error", err)
			continue
		}

		alarms = append(alarms, *alarm)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alarms: %w", err)
	}

	return alarms, nil
}

// placeholder renders the n-th bind parameter.
func (s *SQLSource) placeholder(n int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}

	return "?"
}

// toDomain parses and validates one row.
func toDomain(id, day, clock, label, sound string, enabled bool) (*domain.Alarm, error) {
	weekday, err := domain.ParseWeekday(day)
	if err != nil {
		return nil, err
	}

	at, err := domain.ParseClockTime(clock)
	if err != nil {
		return nil, err
	}

	alarm := &domain.Alarm{
		ID:      strings.TrimSpace(id),
		Day:     weekday,
		Time:    at,
		Label:   label,
		Sound:   sound,
		Enabled: enabled,
	}

	if err = alarm.Validate(); err != nil {
		return nil, err
	}

	return alarm, nil
}

// driverName maps a dialect onto its registered database/sql driver.
func driverName(dialect Dialect) (string, error) {
	switch dialect {
	case DialectSQLite:
		return "sqlite", nil
	case DialectPostgres:
		return "pgx", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
	}
}

// dataSource opens plain SQLite paths read-only with a busy timeout, since the
// web application writes the same file.
func dataSource(dialect Dialect, dsn string) string {
	if dialect != DialectSQLite || strings.HasPrefix(dsn, "file:") || dsn == ":memory:" {
		return dsn
	}

	return fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", dsn)
}
