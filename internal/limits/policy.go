package limits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GrainHologram/SnipeScheduler-sub001/internal/capacity"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/clock"
)

// DefaultCacheTTL bounds how stale cached group memberships may be.
const DefaultCacheTTL = 5 * time.Minute

// PolicyParams configures a Policy.
type PolicyParams struct {
	Defaults            Limits
	GroupOverrides      OverridesTable
	Groups              GroupProvider
	Finder              *capacity.Finder
	Clock               clock.Clock
	SlotIntervalMinutes int
	// CacheTTL for group memberships; DefaultCacheTTL when zero.
	CacheTTL time.Duration
}

// Policy computes effective per-user limits and the checkout/renewal
// ceilings derived from them. Computed deadlines are snapped forward through
// the slot finder so a ceiling never lands inside a closed period or an
// over-capacity slot.
type Policy struct {
	defaults        Limits
	overrides       OverridesTable
	groups          GroupProvider
	finder          *capacity.Finder
	clock           clock.Clock
	intervalMinutes int
	cache           *groupCache
}

// NewPolicy validates params and returns a Policy.
func NewPolicy(params PolicyParams) (*Policy, error) {
	if params.Groups == nil {
		return nil, errors.New("limit policy requires a group provider")
	}
	if params.Finder == nil {
		return nil, errors.New("limit policy requires a slot finder")
	}
	if params.Clock == nil {
		return nil, errors.New("limit policy requires a clock")
	}
	if params.SlotIntervalMinutes <= 0 {
		return nil, fmt.Errorf("slot interval must be positive, got %d", params.SlotIntervalMinutes)
	}
	ttl := params.CacheTTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &Policy{
		defaults:        params.Defaults,
		overrides:       params.GroupOverrides,
		groups:          params.Groups,
		finder:          params.Finder,
		clock:           params.Clock,
		intervalMinutes: params.SlotIntervalMinutes,
		cache:           newGroupCache(params.Clock, ttl),
	}, nil
}

// Invalidate drops the cached group memberships for a user, e.g. after a
// membership write.
func (p *Policy) Invalidate(userID int64) {
	p.cache.invalidate(userID)
}

// EffectiveLimits merges the default limits with the overrides of every
// group the user belongs to.
func (p *Policy) EffectiveLimits(ctx context.Context, userID int64) (Limits, error) {
	groupIDs, err := p.groupIDs(ctx, userID)
	if err != nil {
		return Limits{}, err
	}
	var matched []Override
	for _, groupID := range groupIDs {
		if override, ok := p.overrides[groupID]; ok {
			matched = append(matched, override)
		}
	}
	return Merge(p.defaults, matched), nil
}

func (p *Policy) groupIDs(ctx context.Context, userID int64) ([]int64, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("user id must be positive, got %d", userID)
	}
	if ids, ok := p.cache.get(userID); ok {
		return ids, nil
	}
	ids, err := p.groups.GroupIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query groups for user %d: %w", userID, err)
	}
	p.cache.set(userID, ids)
	return ids, nil
}

// MaxCheckoutEnd returns the latest permissible checkout end for a checkout
// beginning at start. The second return is false when the user's checkout
// length is unlimited.
func (p *Policy) MaxCheckoutEnd(ctx context.Context, userID int64, start time.Time) (time.Time, bool, error) {
	effective, err := p.EffectiveLimits(ctx, userID)
	if err != nil {
		return time.Time{}, false, err
	}
	if effective.MaxCheckoutHours == 0 {
		return time.Time{}, false, nil
	}
	deadline := start.Add(time.Duration(effective.MaxCheckoutHours) * time.Hour)
	snapped, err := p.snapForward(ctx, deadline)
	if err != nil {
		return time.Time{}, false, err
	}
	return snapped, true, nil
}

// MaxRenewalEnd returns the latest permissible renewal end: the earlier of
// the renewal-extension cap (currentExpected + MaxRenewalHours) and the
// lifetime cap (lastCheckoutStart + MaxTotalHours), each snapped forward to
// a usable slot. The second return is false when neither cap is configured.
func (p *Policy) MaxRenewalEnd(ctx context.Context, userID int64, currentExpected, lastCheckoutStart time.Time) (time.Time, bool, error) {
	effective, err := p.EffectiveLimits(ctx, userID)
	if err != nil {
		return time.Time{}, false, err
	}
	renewalCap, totalCap, err := p.renewalCandidates(ctx, effective, currentExpected, lastCheckoutStart)
	if err != nil {
		return time.Time{}, false, err
	}
	switch {
	case renewalCap.IsZero() && totalCap.IsZero():
		return time.Time{}, false, nil
	case renewalCap.IsZero():
		return totalCap, true, nil
	case totalCap.IsZero():
		return renewalCap, true, nil
	case totalCap.Before(renewalCap):
		return totalCap, true, nil
	default:
		return renewalCap, true, nil
	}
}

// renewalCandidates computes the two independent renewal ceilings. A zero
// time means that cap is not configured or lacks input data.
func (p *Policy) renewalCandidates(ctx context.Context, effective Limits, currentExpected, lastCheckoutStart time.Time) (renewalCap, totalCap time.Time, err error) {
	if effective.MaxRenewalHours > 0 && !currentExpected.IsZero() {
		renewalCap, err = p.snapForward(ctx, currentExpected.Add(time.Duration(effective.MaxRenewalHours)*time.Hour))
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if effective.MaxTotalHours > 0 && !lastCheckoutStart.IsZero() {
		totalCap, err = p.snapForward(ctx, lastCheckoutStart.Add(time.Duration(effective.MaxTotalHours)*time.Hour))
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return renewalCap, totalCap, nil
}

// snapForward pushes a raw deadline to the next open, under-capacity slot.
// Search exhaustion is not an error; the raw deadline stands in that case.
func (p *Policy) snapForward(ctx context.Context, deadline time.Time) (time.Time, error) {
	slot, ok, err := p.finder.FirstAvailableSlot(ctx, deadline, p.intervalMinutes)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		log.Ctx(ctx).Debug().Time("deadline", deadline).Msg("No slot within horizon, keeping raw deadline")
		return deadline, nil
	}
	return slot, nil
}

// ValidateCheckoutDuration checks a proposed checkout end against the
// computed ceiling. A non-empty result names the limiting value.
func (p *Policy) ValidateCheckoutDuration(ctx context.Context, userID int64, start, proposedEnd time.Time) ([]string, error) {
	effective, err := p.EffectiveLimits(ctx, userID)
	if err != nil {
		return nil, err
	}
	ceiling, limited, err := p.MaxCheckoutEnd(ctx, userID, start)
	if err != nil {
		return nil, err
	}
	if !limited || !proposedEnd.After(ceiling) {
		return nil, nil
	}
	return []string{fmt.Sprintf(
		"Checkout length exceeds the maximum of %s.",
		hoursWithDays(effective.MaxCheckoutHours))}, nil
}

// ValidateRenewalDuration checks a proposed renewal end against the renewal
// ceiling. The message names whichever constraint is actually binding for
// the given inputs: the renewal-extension cap or the lifetime-total cap.
func (p *Policy) ValidateRenewalDuration(ctx context.Context, userID int64, currentExpected, lastCheckoutStart, proposedEnd time.Time) ([]string, error) {
	effective, err := p.EffectiveLimits(ctx, userID)
	if err != nil {
		return nil, err
	}
	renewalCap, totalCap, err := p.renewalCandidates(ctx, effective, currentExpected, lastCheckoutStart)
	if err != nil {
		return nil, err
	}
	if renewalCap.IsZero() && totalCap.IsZero() {
		return nil, nil
	}
	ceiling := renewalCap
	totalBinding := false
	if renewalCap.IsZero() || (!totalCap.IsZero() && totalCap.Before(renewalCap)) {
		ceiling = totalCap
		totalBinding = !totalCap.IsZero()
	}
	if !proposedEnd.After(ceiling) {
		return nil, nil
	}
	if totalBinding {
		return []string{fmt.Sprintf(
			"Renewal would exceed the maximum total checkout time of %s.",
			hoursWithDays(effective.MaxTotalHours))}, nil
	}
	return []string{fmt.Sprintf(
		"Renewal would extend past the maximum renewal extension of %s.",
		hoursWithDays(effective.MaxRenewalHours))}, nil
}

// ValidateAdvanceReservation checks that a proposed start is not further in
// the future than MaxAdvanceDays from now. Independent of duration limits.
func (p *Policy) ValidateAdvanceReservation(ctx context.Context, userID int64, proposedStart time.Time) ([]string, error) {
	effective, err := p.EffectiveLimits(ctx, userID)
	if err != nil {
		return nil, err
	}
	if effective.MaxAdvanceDays == 0 {
		return nil, nil
	}
	latest := p.clock.Now().AddDate(0, 0, int(effective.MaxAdvanceDays))
	if !proposedStart.After(latest) {
		return nil, nil
	}
	return []string{fmt.Sprintf(
		"Reservations may be placed at most %d days in advance.",
		effective.MaxAdvanceDays)}, nil
}
