package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRefreshPolicy(t *testing.T) {
	p := DefaultRefreshPolicy()
	assert.Equal(t, int64(3600), p.SessionInterval)
	assert.Equal(t, int64(259200), p.RecentInterval)
	assert.Equal(t, int64(1209600), p.RefreshInterval)
	assert.Equal(t, int64(86400), p.Increment)
	assert.NoError(t, p.Validate())
}

func TestNewRefreshPolicy_DropsSubSecond(t *testing.T) {
	p := NewRefreshPolicy(1500*time.Millisecond, 72*time.Hour, 336*time.Hour, 24*time.Hour)
	assert.Equal(t, int64(1), p.SessionInterval)
}

func TestRefreshPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  RefreshPolicy
		wantErr string
	}{
		{"default", DefaultRefreshPolicy(), ""},
		{"zero session", RefreshPolicy{0, 100, 300, 10}, "session_interval"},
		{"zero recent", RefreshPolicy{10, 0, 300, 0}, "recent_interval must be positive"},
		{"zero refresh", RefreshPolicy{10, 100, 0, 10}, "refresh_interval must be positive"},
		{"negative increment", RefreshPolicy{10, 100, 300, -1}, "increment must not be negative"},
		{"session above recent", RefreshPolicy{200, 100, 300, 10}, "session_interval (200s)"},
		{"recent above refresh", RefreshPolicy{10, 400, 300, 10}, "must not exceed refresh_interval"},
		{"window overflow", RefreshPolicy{10, 100, 150, 60}, "recent_interval + increment"},
		{"zero increment", RefreshPolicy{10, 100, 100, 0}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
