// Package settings loads the engine tunables: compiled defaults, then an
// optional TOML file, then the app_settings table. The result is swapped in
// atomically so readers never see a half-applied reload.
package settings

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"taprealm/internal/game"
	"taprealm/internal/logger"
)

// Store is the app_settings table.
type Store interface {
	All(ctx context.Context) (map[string]string, error)
}

// Provider implements game.SettingsSource.
type Provider struct {
	file  string
	store Store

	cur     atomic.Pointer[game.Settings]
	version atomic.Int64
}

// NewProvider starts with the defaults; call Reload to apply file and store.
// Either source may be empty/nil.
func NewProvider(file string, store Store) *Provider {
	p := &Provider{file: file, store: store}
	s := game.DefaultSettings()
	p.version.Store(s.Leagues.Version)
	p.cur.Store(&s)
	return p
}

func (p *Provider) Current() game.Settings {
	return *p.cur.Load()
}

// Version is the league table version currently served.
func (p *Provider) Version() int64 {
	return p.version.Load()
}

// Reload rebuilds the settings from all layers. On error the previous
// settings stay in place.
func (p *Provider) Reload(ctx context.Context) error {
	s := game.DefaultSettings()
	if p.file != "" {
		if err := LoadFile(p.file, &s); err != nil {
			return err
		}
	}
	if p.store != nil {
		kv, err := p.store.All(ctx)
		if err != nil {
			return fmt.Errorf("read app_settings: %w", err)
		}
		unknown, err := ApplyKV(&s, kv)
		if err != nil {
			return fmt.Errorf("apply app_settings: %w", err)
		}
		if len(unknown) > 0 {
			logger.Warn("ignoring unknown settings", "keys", unknown)
		}
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	prev := p.Current()
	if sameTiers(prev.Leagues.Tiers, s.Leagues.Tiers) {
		s.Leagues.Version = prev.Leagues.Version
	} else {
		s.Leagues.Version = p.version.Add(1)
		logger.Info("league table updated", "version", s.Leagues.Version)
	}
	p.cur.Store(&s)
	return nil
}

// Start reloads every interval until ctx is done. Failures are logged and the
// last good settings are kept.
func (p *Provider) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.Reload(ctx); err != nil {
					logger.Error("settings reload failed", "error", err)
				}
			}
		}
	}()
}

func sameTiers(a, b []game.LeagueTier) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
