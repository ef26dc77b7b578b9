// Package limits computes per-user duration limits and checkout/renewal
// ceilings. Limits merge across a user's groups most-permissive-wins, with 0
// meaning unlimited.
package limits

import (
	"context"
	"fmt"
)

// Limits holds the duration-limit fields. A 0 value means unlimited.
type Limits struct {
	MaxCheckoutHours uint `yaml:"max_checkout_hours"`
	MaxRenewalHours  uint `yaml:"max_renewal_hours"`
	MaxTotalHours    uint `yaml:"max_total_hours"`
	MaxAdvanceDays   uint `yaml:"max_advance_days"`
}

// Override is a partial Limits attached to a group. Nil fields leave the
// effective value untouched; a present 0 forces unlimited.
type Override struct {
	MaxCheckoutHours *uint `yaml:"max_checkout_hours"`
	MaxRenewalHours  *uint `yaml:"max_renewal_hours"`
	MaxTotalHours    *uint `yaml:"max_total_hours"`
	MaxAdvanceDays   *uint `yaml:"max_advance_days"`
}

// OverridesTable maps group IDs to their limit overrides.
type OverridesTable map[int64]Override

// GroupProvider supplies a user's group memberships.
type GroupProvider interface {
	GroupIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Merge folds group overrides into the defaults field by field. The result
// is independent of override order: 0 (unlimited) always wins, otherwise the
// larger value does.
func Merge(defaults Limits, overrides []Override) Limits {
	effective := defaults
	for _, o := range overrides {
		effective.MaxCheckoutHours = mergeField(effective.MaxCheckoutHours, o.MaxCheckoutHours)
		effective.MaxRenewalHours = mergeField(effective.MaxRenewalHours, o.MaxRenewalHours)
		effective.MaxTotalHours = mergeField(effective.MaxTotalHours, o.MaxTotalHours)
		effective.MaxAdvanceDays = mergeField(effective.MaxAdvanceDays, o.MaxAdvanceDays)
	}
	return effective
}

func mergeField(current uint, override *uint) uint {
	if override == nil {
		return current
	}
	if current == 0 || *override == 0 {
		return 0
	}
	if *override > current {
		return *override
	}
	return current
}

// hoursWithDays renders an hour limit with its day equivalent for
// user-facing messages, e.g. "48 hours (2 days)".
func hoursWithDays(hours uint) string {
	if hours%24 == 0 {
		days := hours / 24
		if days == 1 {
			return fmt.Sprintf("%d hours (1 day)", hours)
		}
		return fmt.Sprintf("%d hours (%d days)", hours, days)
	}
	return fmt.Sprintf("%d hours (%.1f days)", hours, float64(hours)/24)
}
