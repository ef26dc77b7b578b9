// internal/api/userlimits/handlers.go
package userlimits

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GrainHologram/SnipeScheduler-sub001/internal/api/apiutil"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/limits"
)

const (
	limitsQueryTimeout = 5 * time.Second
	userIDParam        = "user_id"
	startQueryKey      = "start"
)

var (
	policy     *limits.Policy
	policyOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(p *limits.Policy) {
	if p == nil {
		return
	}
	policyOnce.Do(func() {
		policy = p
	})
}

// GET /api/v1/limits/{user_id}
func HandleEffectiveLimits(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if policy == nil {
		logger.Error().Msg("Limit policy not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	userID, err := apiutil.ParsePositiveInt64Field(r.PathValue(userIDParam), userIDParam)
	if err != nil {
		apiutil.WriteError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), limitsQueryTimeout)
	defer cancel()

	effective, err := policy.EffectiveLimits(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to compute effective limits")
		apiutil.WriteError(w, apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to compute effective limits", Err: err})
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"userId":           userID,
		"maxCheckoutHours": effective.MaxCheckoutHours,
		"maxRenewalHours":  effective.MaxRenewalHours,
		"maxTotalHours":    effective.MaxTotalHours,
		"maxAdvanceDays":   effective.MaxAdvanceDays,
	}); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to write limits response")
	}
}

// GET /api/v1/limits/{user_id}/checkout-end?start=RFC3339
func HandleMaxCheckoutEnd(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if policy == nil {
		logger.Error().Msg("Limit policy not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	userID, err := apiutil.ParsePositiveInt64Field(r.PathValue(userIDParam), userIDParam)
	if err != nil {
		apiutil.WriteError(w, err)
		return
	}
	start, err := apiutil.ParseInstant(r.URL.Query().Get(startQueryKey), startQueryKey)
	if err != nil {
		apiutil.WriteError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), limitsQueryTimeout)
	defer cancel()

	end, limited, err := policy.MaxCheckoutEnd(ctx, userID, start)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to compute checkout ceiling")
		apiutil.WriteError(w, apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to compute checkout ceiling", Err: err})
		return
	}

	resp := map[string]any{"userId": userID, "limited": limited}
	if limited {
		resp["maxEnd"] = end.Format(time.RFC3339)
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to write checkout ceiling response")
	}
}
