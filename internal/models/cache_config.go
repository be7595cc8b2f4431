// Package models provides the data types shared by the cache, resolver and renderer.
package models

import (
	"fmt"
	"time"
)

// RefreshPolicy holds the cache refresh windows, in seconds.
// It is immutable for the duration of a run.
type RefreshPolicy struct {
	// SessionInterval: records updated more recently than this are always reused
	SessionInterval int64
	// RecentInterval: records updated within this window are re-checked
	RecentInterval int64
	// RefreshInterval: upper bound for the scheduled next update
	RefreshInterval int64
	// Increment: minimum offset added on top of RecentInterval when scheduling
	Increment int64
}

// DefaultRefreshPolicy returns the default policy
func DefaultRefreshPolicy() RefreshPolicy {
	return RefreshPolicy{
		SessionInterval: int64(time.Hour / time.Second),
		RecentInterval:  int64(3 * 24 * time.Hour / time.Second),
		RefreshInterval: int64(14 * 24 * time.Hour / time.Second),
		Increment:       int64(24 * time.Hour / time.Second),
	}
}

// NewRefreshPolicy converts durations into a policy. Sub-second precision is dropped.
func NewRefreshPolicy(session, recent, refresh, increment time.Duration) RefreshPolicy {
	return RefreshPolicy{
		SessionInterval: int64(session / time.Second),
		RecentInterval:  int64(recent / time.Second),
		RefreshInterval: int64(refresh / time.Second),
		Increment:       int64(increment / time.Second),
	}
}

// Validate checks the ordering constraints between the windows:
// 0 <= increment, session <= recent, recent+increment <= refresh.
func (p RefreshPolicy) Validate() error {
	if p.SessionInterval <= 0 {
		return fmt.Errorf("session_interval must be positive, got %ds", p.SessionInterval)
	}
	if p.RecentInterval <= 0 {
		return fmt.Errorf("recent_interval must be positive, got %ds", p.RecentInterval)
	}
	if p.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive, got %ds", p.RefreshInterval)
	}
	if p.Increment < 0 {
		return fmt.Errorf("increment must not be negative, got %ds", p.Increment)
	}
	if p.Increment > p.RecentInterval {
		return fmt.Errorf("increment (%ds) must not exceed recent_interval (%ds)", p.Increment, p.RecentInterval)
	}
	if p.RecentInterval > p.RefreshInterval {
		return fmt.Errorf("recent_interval (%ds) must not exceed refresh_interval (%ds)", p.RecentInterval, p.RefreshInterval)
	}
	if p.SessionInterval > p.RecentInterval {
		return fmt.Errorf("session_interval (%ds) must not exceed recent_interval (%ds)", p.SessionInterval, p.RecentInterval)
	}
	if p.RecentInterval+p.Increment > p.RefreshInterval {
		return fmt.Errorf("recent_interval + increment (%ds) must not exceed refresh_interval (%ds)",
			p.RecentInterval+p.Increment, p.RefreshInterval)
	}
	return nil
}
