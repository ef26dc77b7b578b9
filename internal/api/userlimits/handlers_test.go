package userlimits

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/GrainHologram/SnipeScheduler-sub001/internal/capacity"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/clock"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/db"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/limits"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/schedule"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/testutil"
)

func uptr(v uint) *uint { return &v }

func setupPolicy(t *testing.T) {
	t.Helper()

	policy = nil
	policyOnce = sync.Once{}

	database := testutil.NewTestDB(t)
	ctx := context.Background()
	seed := []string{
		`INSERT INTO default_hours (day_of_week, is_closed, opens_at, closes_at) VALUES (1, 0, '09:00', '17:00')`,
		`INSERT INTO default_hours (day_of_week, is_closed, opens_at, closes_at) VALUES (2, 0, '09:00', '17:00')`,
		`INSERT INTO default_hours (day_of_week, is_closed, opens_at, closes_at) VALUES (3, 0, '09:00', '17:00')`,
		`INSERT INTO default_hours (day_of_week, is_closed, opens_at, closes_at) VALUES (4, 0, '09:00', '17:00')`,
		`INSERT INTO default_hours (day_of_week, is_closed, opens_at, closes_at) VALUES (5, 0, '09:00', '17:00')`,
		`INSERT INTO default_hours (day_of_week, is_closed) VALUES (6, 1)`,
		`INSERT INTO default_hours (day_of_week, is_closed) VALUES (7, 1)`,
		`INSERT INTO user_groups (user_id, group_id) VALUES (7, 10)`,
		`INSERT INTO user_groups (user_id, group_id) VALUES (8, 20)`,
	}
	for _, stmt := range seed {
		if _, err := database.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	stores := db.NewStores(database)
	tz, err := schedule.NewTimeZoneContext("America/New_York", "")
	if err != nil {
		t.Fatalf("NewTimeZoneContext: %v", err)
	}
	resolver, err := schedule.NewResolver(stores, tz)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	finder, err := capacity.NewFinder(resolver, stores, 4)
	if err != nil {
		t.Fatalf("NewFinder: %v", err)
	}
	p, err := limits.NewPolicy(limits.PolicyParams{
		Defaults: limits.Limits{MaxCheckoutHours: 48, MaxRenewalHours: 24, MaxTotalHours: 96, MaxAdvanceDays: 30},
		GroupOverrides: limits.OverridesTable{
			10: {MaxCheckoutHours: uptr(72)},
			20: {MaxCheckoutHours: uptr(0)},
		},
		Groups:              stores,
		Finder:              finder,
		Clock:               &clock.Fake{Current: time.Date(2026, time.February, 2, 12, 0, 0, 0, time.UTC)},
		SlotIntervalMinutes: 15,
	})
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	InitHandlers(p)
}

func getJSON(t *testing.T, handler http.HandlerFunc, target, userID string, wantStatus int) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.SetPathValue(userIDParam, userID)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != wantStatus {
		t.Fatalf("status = %d, want %d; body %q", w.Code, wantStatus, w.Body.String())
	}
	if wantStatus != http.StatusOK {
		return nil
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestHandleEffectiveLimits(t *testing.T) {
	setupPolicy(t)

	body := getJSON(t, HandleEffectiveLimits, "/api/v1/limits/7", "7", http.StatusOK)
	if body["maxCheckoutHours"] != float64(72) {
		t.Fatalf("maxCheckoutHours = %v, want the group-raised 72", body["maxCheckoutHours"])
	}
	if body["maxRenewalHours"] != float64(24) || body["maxAdvanceDays"] != float64(30) {
		t.Fatalf("untouched fields changed: %v", body)
	}

	getJSON(t, HandleEffectiveLimits, "/api/v1/limits/zero", "zero", http.StatusBadRequest)
	getJSON(t, HandleEffectiveLimits, "/api/v1/limits/0", "0", http.StatusBadRequest)
}

func TestHandleMaxCheckoutEnd(t *testing.T) {
	setupPolicy(t)

	// Monday 10:00 New York + 72h lands Thursday 10:00, inside opening hours.
	body := getJSON(t, HandleMaxCheckoutEnd,
		"/api/v1/limits/7/checkout-end?start=2026-02-02T15:00:00Z", "7", http.StatusOK)
	if body["limited"] != true {
		t.Fatalf("expected a limited checkout, got %v", body)
	}
	if body["maxEnd"] != "2026-02-05T15:00:00Z" {
		t.Fatalf("maxEnd = %v, want Thursday 10:00 New York", body["maxEnd"])
	}

	// User 8's group grants unlimited checkout length.
	body = getJSON(t, HandleMaxCheckoutEnd,
		"/api/v1/limits/8/checkout-end?start=2026-02-02T15:00:00Z", "8", http.StatusOK)
	if body["limited"] != false {
		t.Fatalf("expected unlimited checkout, got %v", body)
	}
	if _, present := body["maxEnd"]; present {
		t.Fatal("unlimited response should omit maxEnd")
	}

	getJSON(t, HandleMaxCheckoutEnd, "/api/v1/limits/7/checkout-end?start=soon", "7", http.StatusBadRequest)
}

func TestHandlersRequireInit(t *testing.T) {
	policy = nil
	policyOnce = sync.Once{}

	getJSON(t, HandleEffectiveLimits, "/api/v1/limits/7", "7", http.StatusInternalServerError)
	getJSON(t, HandleMaxCheckoutEnd, "/api/v1/limits/7/checkout-end?start=2026-02-02T15:00:00Z", "7", http.StatusInternalServerError)
}
