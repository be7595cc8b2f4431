// Package cache decides whether a cached photo record can be reused or must be
// refreshed from Flickr, and schedules the next mandatory refresh.
//
// Caching works on three levels:
//  1. A record updated very recently was most likely updated in the same session,
//     so it is reused without any further checks (session_interval, default 1h).
//  2. A record that is new or was updated within the recent window is re-checked,
//     since fresh uploads tend to get edited (recent_interval, default 3 days).
//  3. Every record is re-checked once its scheduled next update has passed. The
//     schedule is spread between recent_interval+increment and refresh_interval
//     (default 14 days) so that bulk-added photos do not all expire together.
package cache

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/flickrinsert/internal/models"
)

// EpochLayout is the layout of last_updated_str / next_update_str
const EpochLayout = "2006-0102, 15:04:05"

// Verdict is the outcome of a freshness check
type Verdict int

const (
	// Fresh means the cached record is reused as-is
	Fresh Verdict = iota
	// Stale means the record must be fetched again
	Stale
)

func (v Verdict) String() string {
	if v == Stale {
		return "stale"
	}
	return "fresh"
}

// Decision is the result of Decide.
type Decision struct {
	Verdict Verdict
	// NextUpdate is the refresh time to store once a Stale record has been
	// fetched successfully. Zero for Fresh decisions.
	NextUpdate int64
	// Reason is a human-readable explanation of the verdict
	Reason string
}

// IsStale reports whether the record needs a refresh
func (d Decision) IsStale() bool {
	return d.Verdict == Stale
}

// Jitter draws a uniform random value in [0, n). *rand.Rand satisfies it.
type Jitter interface {
	Int64N(n int64) int64
}

// Decide determines whether record must be refreshed at time now (epoch seconds).
// The session check runs first and is terminal: a record inside the session
// window is fresh even if its next update has already passed.
func Decide(record models.CacheRecord, now int64, policy models.RefreshPolicy, jitter Jitter) Decision {
	lastUpdated := record.LastUpdated

	if now-lastUpdated < policy.SessionInterval {
		return Decision{
			Verdict: Fresh,
			Reason:  fmt.Sprintf("updated %ds ago, within session window of %ds", now-lastUpdated, policy.SessionInterval),
		}
	}

	decision := Decision{Verdict: Fresh}

	if lastUpdated == 0 {
		decision.Verdict = Stale
		decision.NextUpdate = NextUpdateTime(now, policy, jitter)
		decision.Reason = "never updated"
	} else if lastUpdated > now-policy.RecentInterval {
		decision.Verdict = Stale
		decision.NextUpdate = NextUpdateTime(now, policy, jitter)
		decision.Reason = fmt.Sprintf("updated %ds ago, within recent window of %ds", now-lastUpdated, policy.RecentInterval)
	}

	// A record that was never scheduled has no deadline yet
	deadline := record.NextUpdate
	if deadline == 0 && lastUpdated == 0 {
		deadline = now + 1
	}

	if deadline <= now {
		if decision.Verdict != Stale {
			decision.NextUpdate = NextUpdateTime(now, policy, jitter)
			decision.Reason = fmt.Sprintf("scheduled update at %d has passed", deadline)
		}
		decision.Verdict = Stale
	}

	if decision.Verdict == Fresh {
		decision.Reason = fmt.Sprintf("next update scheduled at %d", deadline)
	}

	return decision
}

// NextUpdateTime returns now plus a uniform random offset in
// [RecentInterval+Increment, RefreshInterval], both bounds inclusive.
func NextUpdateTime(now int64, policy models.RefreshPolicy, jitter Jitter) int64 {
	low := policy.RecentInterval + policy.Increment
	high := policy.RefreshInterval
	if high <= low {
		return now + low
	}
	return now + low + jitter.Int64N(high-low+1)
}

// ParseEpoch converts a stored epoch value to seconds. Empty or
// whitespace-only input is 0.
func ParseEpoch(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid epoch value %q: %w", s, err)
	}
	return v, nil
}

// FormatEpoch renders epoch seconds in local time using EpochLayout
func FormatEpoch(epoch int64) string {
	return time.Unix(epoch, 0).Format(EpochLayout)
}

// Service applies one refresh policy with its own jitter source
type Service struct {
	policy models.RefreshPolicy
	jitter Jitter
	logger arbor.ILogger
}

// NewService creates a new cache service. A nil jitter uses a time-seeded source.
func NewService(policy models.RefreshPolicy, jitter Jitter, logger arbor.ILogger) *Service {
	if jitter == nil {
		seed := uint64(time.Now().UnixNano())
		jitter = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Service{
		policy: policy,
		jitter: jitter,
		logger: logger,
	}
}

// Policy returns the policy the service was created with
func (s *Service) Policy() models.RefreshPolicy {
	return s.policy
}

// Check runs Decide on a copy of record
func (s *Service) Check(record *models.CacheRecord, now int64) Decision {
	decision := Decide(*record.Clone(), now, s.policy, s.jitter)

	if s.logger != nil {
		s.logger.Debug().
			Str("photo_id", record.ID).
			Str("verdict", decision.Verdict.String()).
			Str("reason", decision.Reason).
			Msg("Cache freshness check")
	}

	return decision
}

// ApplyRefresh stores freshly fetched metadata on record and stamps both epochs
func (s *Service) ApplyRefresh(record *models.CacheRecord, meta *models.Metadata, decision Decision, now int64) {
	nextUpdate := decision.NextUpdate
	if nextUpdate < now {
		nextUpdate = NextUpdateTime(now, s.policy, s.jitter)
	}

	record.Title = meta.Title
	record.ImageURLBase = meta.ImageURLBase
	record.LastUpdated = now
	record.LastUpdatedStr = FormatEpoch(now)
	record.NextUpdate = nextUpdate
	record.NextUpdateStr = FormatEpoch(nextUpdate)
	record.Error = ""
}
