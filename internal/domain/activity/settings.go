package activity

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Settings bounds and defaults.
const (
	DefaultInactiveDays = 3
	MinInactiveDays     = 1
	MaxInactiveDays     = 365
)

// ErrInvalidSettings is returned when saved settings fail validation. The
// store is left unchanged.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the user-editable configuration of the sweeper.
type Settings struct {
	Enabled               bool `json:"enabled"`
	InactiveDaysThreshold int  `json:"inactiveDaysThreshold"`
}

// DefaultSettings returns the first-run settings.
func DefaultSettings() Settings {
	return Settings{Enabled: true, InactiveDaysThreshold: DefaultInactiveDays}
}

// Validate checks the threshold range.
func (s Settings) Validate() error {
	if s.InactiveDaysThreshold < MinInactiveDays || s.InactiveDaysThreshold > MaxInactiveDays {
		return fmt.Errorf("%w: number of days must be between %d and %d",
			ErrInvalidSettings, MinInactiveDays, MaxInactiveDays)
	}
	return nil
}

// thresholdMillis returns the inactivity threshold as a duration in ms.
func (s Settings) thresholdMillis() int64 {
	return int64(s.InactiveDaysThreshold) * msPerDay
}

const (
	msPerHour = 60 * 60 * 1000
	msPerDay  = 24 * msPerHour
)

// loadSettings reads the stored settings. found is false on first run, in
// which case the defaults are returned. A stored record with an out-of-range
// threshold (hand-edited or from an older version) falls back to the default
// threshold.
func (s *store) loadSettings() (set Settings, found bool, err error) {
	vals, err := s.kv.Get(KeySettings)
	if err != nil {
		return DefaultSettings(), false, fmt.Errorf("load settings: %w", err)
	}
	raw, ok := vals[KeySettings]
	if !ok || len(raw) == 0 {
		return DefaultSettings(), false, nil
	}
	set = DefaultSettings()
	if err := json.Unmarshal(raw, &set); err != nil {
		return DefaultSettings(), false, fmt.Errorf("decode %s: %w", KeySettings, err)
	}
	if set.Validate() != nil {
		set.InactiveDaysThreshold = DefaultInactiveDays
	}
	return set, true, nil
}

// saveSettings writes the settings record.
func (s *store) saveSettings(set Settings) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", KeySettings, err)
	}
	if err := s.kv.Set(map[string][]byte{KeySettings: data}); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Settings returns the current settings, defaults on first run.
func (e *Engine) Settings() (Settings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	set, _, err := e.store.loadSettings()
	return set, err
}

// SaveSettings validates and persists new settings.
func (e *Engine) SaveSettings(set Settings) error {
	if err := set.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.saveSettings(set); err != nil {
		return err
	}
	e.log.Info().
		Bool("enabled", set.Enabled).
		Int("inactive_days", set.InactiveDaysThreshold).
		Msg("settings saved")
	return nil
}

// ensureSettings writes the defaults when no settings exist yet.
// Caller holds e.mu.
func (e *Engine) ensureSettings() error {
	_, found, err := e.store.loadSettings()
	if err != nil {
		return err
	}
	if found {
		return nil
	}
	return e.store.saveSettings(DefaultSettings())
}
