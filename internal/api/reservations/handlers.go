// internal/api/reservations/handlers.go
package reservations

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GrainHologram/SnipeScheduler-sub001/internal/api/apiutil"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/db"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/limits"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/schedule"
)

const createTimeout = 5 * time.Second

// Creator persists validated reservations.
type Creator interface {
	CreateReservation(ctx context.Context, res db.NewReservation) (int64, error)
}

// Deps are the components a reservation write runs through: window validation,
// per-user limit checks, then the insert.
type Deps struct {
	Checker *schedule.Checker
	Policy  *limits.Policy
	Store   Creator
}

var (
	deps     Deps
	depsOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(d Deps) {
	if d.Checker == nil {
		return
	}
	depsOnce.Do(func() {
		deps = d
	})
}

type createRequest struct {
	UserID   int64  `json:"userId"`
	AssetTag string `json:"assetTag"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

// POST /api/v1/reservations
func HandleCreateReservation(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if deps.Checker == nil {
		logger.Error().Msg("Reservation handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req createRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid request body", Err: err})
		return
	}

	if req.UserID <= 0 {
		apiutil.WriteError(w, apiutil.FieldError{Field: "userId", Reason: "must be greater than 0"})
		return
	}
	if strings.TrimSpace(req.AssetTag) == "" {
		apiutil.WriteError(w, apiutil.FieldError{Field: "assetTag", Reason: "is required"})
		return
	}
	start, err := apiutil.ParseInstant(req.Start, "start")
	if err != nil {
		apiutil.WriteError(w, err)
		return
	}
	end, err := apiutil.ParseInstant(req.End, "end")
	if err != nil {
		apiutil.WriteError(w, err)
		return
	}
	if !end.After(start) {
		apiutil.WriteError(w, apiutil.FieldError{Field: "end", Reason: "must be after start"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), createTimeout)
	defer cancel()

	violations, err := collectViolations(ctx, req.UserID, start, end)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", req.UserID).Msg("Failed to validate reservation")
		apiutil.WriteError(w, apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to validate reservation", Err: err})
		return
	}
	if len(violations) > 0 {
		if err := apiutil.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"valid":      false,
			"violations": violations,
		}); err != nil {
			logger.Error().Err(err).Msg("Failed to write violation response")
		}
		return
	}

	id, err := deps.Store.CreateReservation(ctx, db.NewReservation{
		UserID:   req.UserID,
		AssetTag: strings.TrimSpace(req.AssetTag),
		StartsAt: start,
		EndsAt:   end,
	})
	if err != nil {
		logger.Error().Err(err).Int64("user_id", req.UserID).Msg("Failed to create reservation")
		apiutil.WriteError(w, apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to create reservation", Err: err})
		return
	}

	logger.Info().Int64("reservation_id", id).Int64("user_id", req.UserID).Msg("Reservation created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":     id,
		"status": "pending",
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to write reservation response")
	}
}

// collectViolations runs the window check and the per-user limit checks in
// order; the combined list goes back to the caller verbatim.
func collectViolations(ctx context.Context, userID int64, start, end time.Time) ([]string, error) {
	violations, err := deps.Checker.ValidateWindow(ctx, start, end)
	if err != nil {
		return nil, err
	}
	advance, err := deps.Policy.ValidateAdvanceReservation(ctx, userID, start)
	if err != nil {
		return nil, err
	}
	violations = append(violations, advance...)
	duration, err := deps.Policy.ValidateCheckoutDuration(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	violations = append(violations, duration...)
	return violations, nil
}
