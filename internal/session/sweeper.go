package session

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"
)

// StartSweeper schedules periodic expiry of sessions older than the
// configured TTL. The schedule uses cron syntax, e.g. "@every 10m".
func (m *Manager) StartSweeper(schedule string) error {
	if m.ttl <= 0 {
		return nil
	}
	m.cron = cron.New()
	if _, err := m.cron.AddFunc(schedule, func() {
		if err := m.SweepExpired(context.Background()); err != nil {
			log.Error().Err(err).Msg("session sweep failed")
		}
	}); err != nil {
		return err
	}
	m.cron.Start()
	return nil
}

// StopSweeper stops the expiry schedule and waits for a running sweep.
func (m *Manager) StopSweeper() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
}

// SweepExpired deletes every session whose marker is older than the TTL.
func (m *Manager) SweepExpired(ctx context.Context) error {
	if m.ttl <= 0 {
		return nil
	}

	keys, err := m.blobs.List(ctx, "sessions/")
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-m.ttl)
	swept := 0
	for _, key := range keys {
		if !strings.HasSuffix(key, "/session.json") {
			continue
		}
		data, _, err := m.blobs.Get(ctx, key)
		if err != nil {
			continue
		}
		var marker Marker
		if err := json.Unmarshal(data, &marker); err != nil || marker.SessionID == "" {
			log.Warn().Str("key", key).Msg("skipping unreadable session marker")
			continue
		}
		if marker.CreatedAt.After(cutoff) {
			continue
		}
		if err := m.Delete(ctx, marker.SessionID); err != nil {
			log.Error().Err(err).Str("session", marker.SessionID).Msg("expiring session failed")
			continue
		}
		swept++
	}
	if swept > 0 {
		log.Info().Int("sessions", swept).Msg("expired sessions swept")
	}
	return nil
}
