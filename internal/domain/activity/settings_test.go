package activity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		days int
		ok   bool
	}{
		{0, false},
		{1, true},
		{3, true},
		{365, true},
		{366, false},
		{-4, false},
	}
	for _, tt := range tests {
		err := Settings{Enabled: true, InactiveDaysThreshold: tt.days}.Validate()
		if tt.ok {
			assert.NoError(t, err, "days=%d", tt.days)
		} else {
			assert.ErrorIs(t, err, ErrInvalidSettings, "days=%d", tt.days)
		}
	}
}

func TestSettings_DefaultsOnFirstRun(t *testing.T) {
	f := newFixture(t)
	set, err := f.engine.Settings()
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), set)
}

func TestSaveSettings_RejectsInvalid(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.SaveSettings(Settings{Enabled: true, InactiveDaysThreshold: 10}))

	err := f.engine.SaveSettings(Settings{Enabled: false, InactiveDaysThreshold: 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSettings))
	assert.Contains(t, err.Error(), "between 1 and 365")

	set, err := f.engine.Settings()
	require.NoError(t, err)
	assert.Equal(t, Settings{Enabled: true, InactiveDaysThreshold: 10}, set, "store unchanged")
}

func TestSettings_StoredOutOfRangeFallsBack(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.kv.Set(map[string][]byte{KeySettings: []byte(`{"enabled":false,"inactiveDaysThreshold":0}`)}))

	set, err := f.engine.Settings()
	require.NoError(t, err)
	assert.False(t, set.Enabled)
	assert.Equal(t, DefaultInactiveDays, set.InactiveDaysThreshold)
}

func TestSettings_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.kv.FailSet(errors.New("read-only"))
	err := f.engine.SaveSettings(DefaultSettings())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save settings")
}
