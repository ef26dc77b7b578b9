package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/GrainHologram/SnipeScheduler-sub001/internal/capacity"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/schedule"
)

// Instants are persisted as UTC RFC3339 text so range predicates can compare
// lexicographically.
const utcLayout = "2006-01-02T15:04:05Z"

// Stores implements the engine's read interfaces (schedule.Store,
// capacity.EventStore, limits.GroupProvider) and the reservation writes over
// SQLite.
type Stores struct {
	db *DB
}

// NewStores binds the store implementations to an open database.
func NewStores(database *DB) *Stores {
	return &Stores{db: database}
}

// DefaultWeekday returns the default template row for an ISO weekday, or nil
// when the weekday is unconfigured.
func (s *Stores) DefaultWeekday(ctx context.Context, weekday int) (*schedule.WeekdayHours, error) {
	if weekday < 1 || weekday > 7 {
		return nil, fmt.Errorf("weekday must be 1..7, got %d", weekday)
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT day_of_week, is_closed, opens_at, closes_at FROM default_hours WHERE day_of_week = ?`,
		weekday,
	)
	entry, err := scanWeekdayHours(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query default hours: %w", err)
	}
	return &entry, nil
}

// RecurringSchedulesCovering returns every recurring schedule whose date
// range contains date, with its weekday entries attached.
func (s *Stores) RecurringSchedulesCovering(ctx context.Context, date schedule.Date) ([]schedule.RecurringSchedule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.name, s.start_date, s.end_date,
		        d.day_of_week, d.is_closed, d.opens_at, d.closes_at
		   FROM recurring_schedules s
		   JOIN recurring_schedule_days d ON d.schedule_id = s.id
		  WHERE s.start_date <= ? AND s.end_date >= ?
		  ORDER BY s.id`,
		date.String(), date.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query recurring schedules: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*schedule.RecurringSchedule)
	var order []int64
	for rows.Next() {
		var (
			id                 int64
			name               string
			startText, endText string
			weekday            int
			isClosed           bool
			opensAt, closesAt  sql.NullString
		)
		if err := rows.Scan(&id, &name, &startText, &endText, &weekday, &isClosed, &opensAt, &closesAt); err != nil {
			return nil, fmt.Errorf("scan recurring schedule: %w", err)
		}
		entry, err := weekdayHoursFrom(weekday, isClosed, opensAt, closesAt)
		if err != nil {
			return nil, fmt.Errorf("schedule %d: %w", id, err)
		}
		sched, ok := byID[id]
		if !ok {
			startDate, err := schedule.ParseDate(startText)
			if err != nil {
				return nil, fmt.Errorf("schedule %d: %w", id, err)
			}
			endDate, err := schedule.ParseDate(endText)
			if err != nil {
				return nil, fmt.Errorf("schedule %d: %w", id, err)
			}
			sched = &schedule.RecurringSchedule{
				ID:        id,
				Name:      name,
				StartDate: startDate,
				EndDate:   endDate,
				Days:      make(map[int]schedule.WeekdayHours),
			}
			byID[id] = sched
			order = append(order, id)
		}
		sched.Days[weekday] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recurring schedules: %w", err)
	}

	schedules := make([]schedule.RecurringSchedule, 0, len(order))
	for _, id := range order {
		schedules = append(schedules, *byID[id])
	}
	return schedules, nil
}

// OverridesCovering returns every one-off override whose UTC range
// intersects [startUTC, endUTC].
func (s *Stores) OverridesCovering(ctx context.Context, startUTC, endUTC time.Time) ([]schedule.OneOffOverride, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, starts_at, ends_at, kind
		   FROM schedule_overrides
		  WHERE starts_at <= ? AND ends_at >= ?
		  ORDER BY id`,
		formatUTC(endUTC), formatUTC(startUTC),
	)
	if err != nil {
		return nil, fmt.Errorf("query overrides: %w", err)
	}
	defer rows.Close()

	var overrides []schedule.OneOffOverride
	for rows.Next() {
		var (
			o                  schedule.OneOffOverride
			startText, endText string
			kind               string
		)
		if err := rows.Scan(&o.ID, &o.Label, &startText, &endText, &kind); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		if o.StartsAt, err = parseUTC(startText); err != nil {
			return nil, fmt.Errorf("override %d: %w", o.ID, err)
		}
		if o.EndsAt, err = parseUTC(endText); err != nil {
			return nil, fmt.Errorf("override %d: %w", o.ID, err)
		}
		o.Kind = schedule.OverrideKind(kind)
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overrides: %w", err)
	}
	return overrides, nil
}

// ActiveReservationsInWindow returns reservations in pending or confirmed
// status with a boundary inside [startUTC, endUTC].
func (s *Stores) ActiveReservationsInWindow(ctx context.Context, startUTC, endUTC time.Time) ([]capacity.Event, error) {
	return s.eventsInWindow(ctx,
		`SELECT starts_at, ends_at FROM reservations
		  WHERE status IN ('pending', 'confirmed')
		    AND ((starts_at >= ? AND starts_at <= ?) OR (ends_at >= ? AND ends_at <= ?))`,
		startUTC, endUTC)
}

// ActiveCheckoutsInWindow returns checkouts in open or partial status with a
// boundary inside [startUTC, endUTC].
func (s *Stores) ActiveCheckoutsInWindow(ctx context.Context, startUTC, endUTC time.Time) ([]capacity.Event, error) {
	return s.eventsInWindow(ctx,
		`SELECT starts_at, expected_end_at FROM checkouts
		  WHERE status IN ('open', 'partial')
		    AND ((starts_at >= ? AND starts_at <= ?) OR (expected_end_at >= ? AND expected_end_at <= ?))`,
		startUTC, endUTC)
}

func (s *Stores) eventsInWindow(ctx context.Context, query string, startUTC, endUTC time.Time) ([]capacity.Event, error) {
	start, end := formatUTC(startUTC), formatUTC(endUTC)
	rows, err := s.db.QueryContext(ctx, query, start, end, start, end)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []capacity.Event
	for rows.Next() {
		var startText, endText string
		if err := rows.Scan(&startText, &endText); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var ev capacity.Event
		if ev.StartsAt, err = parseUTC(startText); err != nil {
			return nil, err
		}
		if ev.EndsAt, err = parseUTC(endText); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// NewReservation is the insert payload for a reservation. Instants are UTC.
type NewReservation struct {
	UserID   int64
	AssetTag string
	StartsAt time.Time
	EndsAt   time.Time
}

// CreateReservation inserts a pending reservation and returns its ID.
func (s *Stores) CreateReservation(ctx context.Context, res NewReservation) (int64, error) {
	var id int64
	err := s.db.RunInTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO reservations (user_id, asset_tag, starts_at, ends_at, status)
			 VALUES (?, ?, ?, ?, 'pending')`,
			res.UserID, res.AssetTag, formatUTC(res.StartsAt), formatUTC(res.EndsAt),
		)
		if err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("read reservation id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GroupIDs returns the IDs of every group the user belongs to.
func (s *Stores) GroupIDs(ctx context.Context, userID int64) ([]int64, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("user id must be positive, got %d", userID)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id FROM user_groups WHERE user_id = ? ORDER BY group_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query user groups: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user groups: %w", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWeekdayHours(row rowScanner) (schedule.WeekdayHours, error) {
	var (
		weekday           int
		isClosed          bool
		opensAt, closesAt sql.NullString
	)
	if err := row.Scan(&weekday, &isClosed, &opensAt, &closesAt); err != nil {
		return schedule.WeekdayHours{}, err
	}
	return weekdayHoursFrom(weekday, isClosed, opensAt, closesAt)
}

func weekdayHoursFrom(weekday int, isClosed bool, opensAt, closesAt sql.NullString) (schedule.WeekdayHours, error) {
	entry := schedule.WeekdayHours{Weekday: weekday, Closed: isClosed}
	if isClosed {
		return entry, nil
	}
	if !opensAt.Valid || !closesAt.Valid {
		return schedule.WeekdayHours{}, fmt.Errorf("weekday %d is open but has no opening times", weekday)
	}
	var err error
	if entry.Open, err = schedule.ParseTimeOfDay(opensAt.String); err != nil {
		return schedule.WeekdayHours{}, err
	}
	if entry.Close, err = schedule.ParseTimeOfDay(closesAt.String); err != nil {
		return schedule.WeekdayHours{}, err
	}
	if entry.Open > entry.Close {
		return schedule.WeekdayHours{}, fmt.Errorf("weekday %d closes (%s) before it opens (%s)", weekday, entry.Close, entry.Open)
	}
	return entry, nil
}

func formatUTC(t time.Time) string {
	return t.UTC().Format(utcLayout)
}

func parseUTC(value string) (time.Time, error) {
	t, err := time.Parse(utcLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored instant %q: %w", value, err)
	}
	return t, nil
}
