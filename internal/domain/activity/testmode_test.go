package activity

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartTestMode_StampsPastThreshold(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.SaveSettings(Settings{Enabled: true, InactiveDaysThreshold: 7}))

	created, err := f.engine.StartTestMode(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, created)

	ids := f.engine.TestTabs()
	require.Len(t, ids, 5)
	l := f.ledger(t)
	want := ms(t0) - 8*msPerDay
	seen := map[string]bool{}
	tabs, err := f.browser.Query(f.ctx)
	require.NoError(t, err)
	for _, tab := range tabs {
		assert.Equal(t, want, l.Tabs[tab.ID])
		assert.Equal(t, want, l.URLs[tab.URL])
		assert.True(t, strings.HasPrefix(tab.URL, TestPageURL+"?"+TestMarkerParam+"="), tab.URL)
		assert.False(t, seen[tab.URL], "markers are unique")
		seen[tab.URL] = true
	}

	raw, err := f.kv.Get(KeyTestTabs)
	require.NoError(t, err)
	assert.NotEmpty(t, raw[KeyTestTabs], "test set persisted")
}

func TestStartTestMode_CreateFailureSkipped(t *testing.T) {
	f := newFixture(t)
	f.browser.FailCreate(1, errors.New("quota"))
	f.browser.FailCreate(3, errors.New("quota"))

	created, err := f.engine.StartTestMode(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, created)
	assert.Len(t, f.engine.TestTabs(), 3)
}

func TestTestTabURL(t *testing.T) {
	u, err := url.Parse(TestTabURL("abc-123"))
	require.NoError(t, err)
	assert.Equal(t, "example.com", u.Host)
	assert.Equal(t, "abc-123", u.Query().Get(TestMarkerParam))
}
