package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/GrainHologram/SnipeScheduler-sub001/internal/db"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/schedule"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/testutil"
)

func exec(t *testing.T, database *db.DB, query string, args ...any) {
	t.Helper()
	if _, err := database.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func utc(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02T15:04:05Z", value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func TestDefaultWeekday(t *testing.T) {
	database := testutil.NewTestDB(t)
	stores := db.NewStores(database)
	ctx := context.Background()

	exec(t, database, `INSERT INTO default_hours (day_of_week, is_closed, opens_at, closes_at) VALUES (1, 0, '09:00', '17:00')`)
	exec(t, database, `INSERT INTO default_hours (day_of_week, is_closed) VALUES (6, 1)`)

	monday, err := stores.DefaultWeekday(ctx, 1)
	if err != nil {
		t.Fatalf("DefaultWeekday(1): %v", err)
	}
	if monday == nil {
		t.Fatal("DefaultWeekday(1) = nil, want the configured row")
	}
	if monday.Closed || monday.Open.String() != "09:00" || monday.Close.String() != "17:00" {
		t.Fatalf("DefaultWeekday(1) = %+v", monday)
	}

	saturday, err := stores.DefaultWeekday(ctx, 6)
	if err != nil {
		t.Fatalf("DefaultWeekday(6): %v", err)
	}
	if saturday == nil || !saturday.Closed {
		t.Fatalf("DefaultWeekday(6) = %+v, want closed", saturday)
	}

	sunday, err := stores.DefaultWeekday(ctx, 7)
	if err != nil {
		t.Fatalf("DefaultWeekday(7): %v", err)
	}
	if sunday != nil {
		t.Fatalf("DefaultWeekday(7) = %+v, want nil for unconfigured", sunday)
	}

	if _, err := stores.DefaultWeekday(ctx, 0); err == nil {
		t.Fatal("expected error for weekday 0")
	}
}

func TestRecurringSchedulesCovering(t *testing.T) {
	database := testutil.NewTestDB(t)
	stores := db.NewStores(database)
	ctx := context.Background()

	exec(t, database, `INSERT INTO recurring_schedules (id, name, start_date, end_date) VALUES (1, 'Winter', '2026-01-01', '2026-02-28')`)
	exec(t, database, `INSERT INTO recurring_schedule_days (schedule_id, day_of_week, is_closed, opens_at, closes_at) VALUES (1, 1, 0, '10:00', '16:00')`)
	exec(t, database, `INSERT INTO recurring_schedule_days (schedule_id, day_of_week, is_closed) VALUES (1, 6, 1)`)
	exec(t, database, `INSERT INTO recurring_schedules (id, name, start_date, end_date) VALUES (2, 'Spring', '2026-03-01', '2026-05-31')`)
	exec(t, database, `INSERT INTO recurring_schedule_days (schedule_id, day_of_week, is_closed, opens_at, closes_at) VALUES (2, 1, 0, '08:00', '18:00')`)

	covering, err := stores.RecurringSchedulesCovering(ctx, schedule.Date{Year: 2026, Month: 2, Day: 2})
	if err != nil {
		t.Fatalf("RecurringSchedulesCovering: %v", err)
	}
	if len(covering) != 1 {
		t.Fatalf("got %d schedules, want 1", len(covering))
	}
	winter := covering[0]
	if winter.ID != 1 || winter.Name != "Winter" {
		t.Fatalf("schedule = %+v", winter)
	}
	if len(winter.Days) != 2 {
		t.Fatalf("Days = %v, want entries for Monday and Saturday", winter.Days)
	}
	if winter.Days[1].Open.String() != "10:00" {
		t.Fatalf("Monday open = %s, want 10:00", winter.Days[1].Open)
	}
	if !winter.Days[6].Closed {
		t.Fatal("Saturday entry should be closed")
	}

	none, err := stores.RecurringSchedulesCovering(ctx, schedule.Date{Year: 2026, Month: 6, Day: 15})
	if err != nil {
		t.Fatalf("RecurringSchedulesCovering: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("got %d schedules for an uncovered date, want 0", len(none))
	}
}

func TestOverridesCoveringIntersection(t *testing.T) {
	database := testutil.NewTestDB(t)
	stores := db.NewStores(database)
	ctx := context.Background()

	exec(t, database, `INSERT INTO schedule_overrides (id, label, starts_at, ends_at, kind)
		VALUES (1, 'Inventory day', '2026-02-03T05:00:00Z', '2026-02-04T04:59:59Z', 'closed')`)
	exec(t, database, `INSERT INTO schedule_overrides (id, label, starts_at, ends_at, kind)
		VALUES (2, 'Open house', '2026-02-10T05:00:00Z', '2026-02-11T04:59:59Z', 'open')`)

	// A window overlapping only the tail of the first override still matches.
	covering, err := stores.OverridesCovering(ctx, utc(t, "2026-02-04T00:00:00Z"), utc(t, "2026-02-04T12:00:00Z"))
	if err != nil {
		t.Fatalf("OverridesCovering: %v", err)
	}
	if len(covering) != 1 {
		t.Fatalf("got %d overrides, want 1", len(covering))
	}
	got := covering[0]
	if got.ID != 1 || got.Label != "Inventory day" || got.Kind != schedule.OverrideClosed {
		t.Fatalf("override = %+v", got)
	}
	if !got.StartsAt.Equal(utc(t, "2026-02-03T05:00:00Z")) || !got.EndsAt.Equal(utc(t, "2026-02-04T04:59:59Z")) {
		t.Fatalf("override range = %s..%s", got.StartsAt, got.EndsAt)
	}

	none, err := stores.OverridesCovering(ctx, utc(t, "2026-02-05T00:00:00Z"), utc(t, "2026-02-06T00:00:00Z"))
	if err != nil {
		t.Fatalf("OverridesCovering: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("got %d overrides for a clear window, want 0", len(none))
	}
}

func TestActiveEventsFilterStatusAndWindow(t *testing.T) {
	database := testutil.NewTestDB(t)
	stores := db.NewStores(database)
	ctx := context.Background()

	exec(t, database, `INSERT INTO reservations (user_id, asset_tag, starts_at, ends_at, status)
		VALUES (1, 'CAM-001', '2026-02-02T15:00:00Z', '2026-02-02T16:00:00Z', 'confirmed')`)
	exec(t, database, `INSERT INTO reservations (user_id, asset_tag, starts_at, ends_at, status)
		VALUES (2, 'CAM-002', '2026-02-02T15:00:00Z', '2026-02-02T16:00:00Z', 'cancelled')`)
	exec(t, database, `INSERT INTO reservations (user_id, asset_tag, starts_at, ends_at, status)
		VALUES (3, 'CAM-003', '2026-02-09T15:00:00Z', '2026-02-09T16:00:00Z', 'pending')`)
	// Starts before the window but ends inside it.
	exec(t, database, `INSERT INTO reservations (user_id, asset_tag, starts_at, ends_at, status)
		VALUES (4, 'CAM-004', '2026-02-02T13:00:00Z', '2026-02-02T15:30:00Z', 'pending')`)

	reservations, err := stores.ActiveReservationsInWindow(ctx, utc(t, "2026-02-02T14:00:00Z"), utc(t, "2026-02-02T22:00:00Z"))
	if err != nil {
		t.Fatalf("ActiveReservationsInWindow: %v", err)
	}
	if len(reservations) != 2 {
		t.Fatalf("got %d reservations, want 2 (confirmed in-window plus pending ending in-window)", len(reservations))
	}

	exec(t, database, `INSERT INTO checkouts (user_id, asset_tag, starts_at, expected_end_at, status)
		VALUES (1, 'CAM-001', '2026-02-02T15:00:00Z', '2026-02-02T17:00:00Z', 'open')`)
	exec(t, database, `INSERT INTO checkouts (user_id, asset_tag, starts_at, expected_end_at, status)
		VALUES (2, 'CAM-002', '2026-02-02T15:00:00Z', '2026-02-02T17:00:00Z', 'returned')`)

	checkouts, err := stores.ActiveCheckoutsInWindow(ctx, utc(t, "2026-02-02T14:00:00Z"), utc(t, "2026-02-02T22:00:00Z"))
	if err != nil {
		t.Fatalf("ActiveCheckoutsInWindow: %v", err)
	}
	if len(checkouts) != 1 {
		t.Fatalf("got %d checkouts, want 1 (returned excluded)", len(checkouts))
	}
	if !checkouts[0].EndsAt.Equal(utc(t, "2026-02-02T17:00:00Z")) {
		t.Fatalf("checkout end = %s, want expected_end_at", checkouts[0].EndsAt)
	}
}

func TestCreateReservation(t *testing.T) {
	database := testutil.NewTestDB(t)
	stores := db.NewStores(database)
	ctx := context.Background()

	id, err := stores.CreateReservation(ctx, db.NewReservation{
		UserID:   7,
		AssetTag: "CAM-001",
		StartsAt: utc(t, "2026-02-02T15:00:00Z"),
		EndsAt:   utc(t, "2026-02-02T17:00:00Z"),
	})
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if id <= 0 {
		t.Fatalf("id = %d, want a positive row id", id)
	}

	// The new row is pending, so it counts toward capacity immediately.
	events, err := stores.ActiveReservationsInWindow(ctx, utc(t, "2026-02-02T14:00:00Z"), utc(t, "2026-02-02T22:00:00Z"))
	if err != nil {
		t.Fatalf("ActiveReservationsInWindow: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want the created reservation", len(events))
	}
	if !events[0].StartsAt.Equal(utc(t, "2026-02-02T15:00:00Z")) {
		t.Fatalf("event start = %s", events[0].StartsAt)
	}
}

func TestGroupIDs(t *testing.T) {
	database := testutil.NewTestDB(t)
	stores := db.NewStores(database)
	ctx := context.Background()

	exec(t, database, `INSERT INTO user_groups (user_id, group_id) VALUES (7, 20)`)
	exec(t, database, `INSERT INTO user_groups (user_id, group_id) VALUES (7, 10)`)
	exec(t, database, `INSERT INTO user_groups (user_id, group_id) VALUES (8, 30)`)

	ids, err := stores.GroupIDs(ctx, 7)
	if err != nil {
		t.Fatalf("GroupIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != 10 || ids[1] != 20 {
		t.Fatalf("GroupIDs = %v, want [10 20]", ids)
	}

	empty, err := stores.GroupIDs(ctx, 99)
	if err != nil {
		t.Fatalf("GroupIDs: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("GroupIDs = %v, want none", empty)
	}

	if _, err := stores.GroupIDs(ctx, -1); err == nil {
		t.Fatal("expected error for negative user id")
	}
}
