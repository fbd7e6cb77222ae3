package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/idletab/internal/ports"
)

func TestStats_Classification(t *testing.T) {
	f := newFixture(t)
	stale := f.browser.OpenTab(ports.Tab{URL: urlA, Title: "Stale", FaviconURL: "https://a.example.org/favicon.ico"})
	fresh := f.browser.OpenTab(ports.Tab{URL: urlB})
	tracking := f.browser.Open(urlC)
	f.browser.Open("chrome://newtab/")
	f.seed(t, &Ledger{
		Tabs: map[int]int64{fresh.ID: ms(t0.Add(-90 * time.Minute))},
		URLs: map[string]int64{urlA: ms(t0.Add(-days(4)))},
	})

	st, err := f.engine.Stats(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, st.TotalTabs, "system pages count toward the total")
	assert.Equal(t, 2, st.ActiveTabs)
	assert.Equal(t, 1, st.InactiveTabs)
	assert.Equal(t, DefaultInactiveDays, st.InactiveDaysThreshold)
	assert.True(t, st.Enabled)
	require.Len(t, st.TabDetails, 3)

	first := st.TabDetails[0]
	assert.Equal(t, stale.ID, first.ID)
	assert.Equal(t, StatusInactive, first.Status)
	assert.Equal(t, "Stale", first.Title)
	assert.Equal(t, "https://a.example.org/favicon.ico", first.Favicon)
	assert.Equal(t, 96.0, first.InactiveHours)
	require.NotNil(t, first.LastActivity)

	second := st.TabDetails[1]
	assert.Equal(t, fresh.ID, second.ID)
	assert.Equal(t, StatusActive, second.Status)
	assert.Equal(t, 1.5, second.InactiveHours)
	assert.Equal(t, urlB, second.Title, "URL stands in for a missing title")

	third := st.TabDetails[2]
	assert.Equal(t, tracking.ID, third.ID)
	assert.Equal(t, StatusTracking, third.Status)
	assert.Nil(t, third.LastActivity)
	assert.Zero(t, third.InactiveHours)
}

func TestStats_PersistsBackfill(t *testing.T) {
	f := newFixture(t)
	tab := f.browser.Open(urlA)
	f.seed(t, &Ledger{Tabs: map[int]int64{}, URLs: map[string]int64{urlA: 123}})

	_, err := f.engine.Stats(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(123), f.ledger(t).Tabs[tab.ID])
}

func TestStats_Empty(t *testing.T) {
	f := newFixture(t)
	st, err := f.engine.Stats(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, st.TotalTabs)
	assert.NotNil(t, st.TabDetails, "encodes as [] not null")
}

func TestInactiveHours(t *testing.T) {
	assert.Equal(t, 0.0, inactiveHours(1000, 5000), "future timestamps floor at zero")
	assert.Equal(t, 1.0, inactiveHours(msPerHour, 0))
	assert.Equal(t, 0.33, inactiveHours(msPerHour/3, 0))
	assert.Equal(t, 0.67, inactiveHours(2*msPerHour/3, 0))
}

func TestDisplayTitle(t *testing.T) {
	assert.Equal(t, "T", displayTitle("T", urlA))
	assert.Equal(t, urlA, displayTitle("", urlA))
	assert.Equal(t, "Untitled tab", displayTitle("", ""))
}
