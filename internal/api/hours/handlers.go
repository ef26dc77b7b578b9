// internal/api/hours/handlers.go
package hours

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GrainHologram/SnipeScheduler-sub001/internal/api/apiutil"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/capacity"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/schedule"
)

const (
	hoursQueryTimeout = 5 * time.Second
	dateQueryKey      = "date"
	atQueryKey        = "at"
	startQueryKey     = "start"
	endQueryKey       = "end"
	fromQueryKey      = "from"
)

// Deps are the engine components the hours endpoints read from.
type Deps struct {
	Resolver            *schedule.Resolver
	Checker             *schedule.Checker
	Finder              *capacity.Finder
	SlotIntervalMinutes int
}

var (
	deps     Deps
	depsOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(d Deps) {
	if d.Resolver == nil {
		return
	}
	depsOnce.Do(func() {
		deps = d
	})
}

type dayHoursResponse struct {
	Date     string `json:"date"`
	Closed   bool   `json:"closed"`
	OpensAt  string `json:"opensAt,omitempty"`
	ClosesAt string `json:"closesAt,omitempty"`
	Source   string `json:"source"`
}

// GET /api/v1/hours?date=YYYY-MM-DD
func HandleDayHours(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if deps.Resolver == nil {
		logger.Error().Msg("Hours handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	date, err := schedule.ParseDate(r.URL.Query().Get(dateQueryKey))
	if err != nil {
		apiutil.WriteError(w, apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), hoursQueryTimeout)
	defer cancel()

	resolved, err := deps.Resolver.ResolveDay(ctx, date)
	if err != nil {
		logger.Error().Err(err).Str("date", date.String()).Msg("Failed to resolve day hours")
		apiutil.WriteError(w, apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to resolve day hours", Err: err})
		return
	}

	resp := dayHoursResponse{
		Date:   date.String(),
		Closed: resolved.Closed,
		Source: string(resolved.Source),
	}
	if !resolved.Closed {
		resp.OpensAt = resolved.Open.String()
		resp.ClosesAt = resolved.Close.String()
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write day hours response")
	}
}

// GET /api/v1/availability?at=RFC3339
func HandleOpenCheck(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if deps.Checker == nil {
		logger.Error().Msg("Hours handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	at, err := apiutil.ParseInstant(r.URL.Query().Get(atQueryKey), atQueryKey)
	if err != nil {
		apiutil.WriteError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), hoursQueryTimeout)
	defer cancel()

	open, err := deps.Checker.IsOpenAt(ctx, at)
	if err != nil {
		logger.Error().Err(err).Time("at", at).Msg("Failed to check openness")
		apiutil.WriteError(w, apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to check availability", Err: err})
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"at":   at.Format(time.RFC3339),
		"open": open,
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to write availability response")
	}
}

// GET /api/v1/availability/validate?start=RFC3339&end=RFC3339
func HandleValidateWindow(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if deps.Checker == nil {
		logger.Error().Msg("Hours handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	start, err := apiutil.ParseInstant(r.URL.Query().Get(startQueryKey), startQueryKey)
	if err != nil {
		apiutil.WriteError(w, err)
		return
	}
	end, err := apiutil.ParseInstant(r.URL.Query().Get(endQueryKey), endQueryKey)
	if err != nil {
		apiutil.WriteError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), hoursQueryTimeout)
	defer cancel()

	violations, err := deps.Checker.ValidateWindow(ctx, start, end)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to validate reservation window")
		apiutil.WriteError(w, apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to validate window", Err: err})
		return
	}
	if violations == nil {
		violations = []string{}
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"valid":      len(violations) == 0,
		"violations": violations,
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to write validation response")
	}
}

// GET /api/v1/slots/next?from=RFC3339
func HandleNextSlot(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if deps.Finder == nil {
		logger.Error().Msg("Hours handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	from, err := apiutil.ParseInstant(r.URL.Query().Get(fromQueryKey), fromQueryKey)
	if err != nil {
		apiutil.WriteError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), hoursQueryTimeout)
	defer cancel()

	slot, ok, err := deps.Finder.FirstAvailableSlot(ctx, from, deps.SlotIntervalMinutes)
	if err != nil {
		logger.Error().Err(err).Time("from", from).Msg("Failed to search for next slot")
		apiutil.WriteError(w, apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to search for next slot", Err: err})
		return
	}

	resp := map[string]any{"available": ok}
	if ok {
		resp["slot"] = slot.Format(time.RFC3339)
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write next slot response")
	}
}
