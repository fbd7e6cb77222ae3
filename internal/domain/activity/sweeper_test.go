package activity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/idletab/internal/adapters/memhost"
)

func TestSweep_ClosesOnlyStaleTabs(t *testing.T) {
	// Threshold 3 days: A idle 4 days goes, B idle 2 days stays.
	f := newFixture(t)
	a := f.browser.Open(urlA)
	b := f.browser.Open(urlB)
	f.seed(t, &Ledger{
		Tabs: map[int]int64{a.ID: ms(t0.Add(-days(4))), b.ID: ms(t0.Add(-days(2)))},
		URLs: map[string]int64{urlA: ms(t0.Add(-days(4))), urlB: ms(t0.Add(-days(2)))},
	})

	res, err := f.engine.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Candidates: 1, Closed: 1}, res)
	assert.False(t, f.browser.Has(a.ID))
	assert.True(t, f.browser.Has(b.ID))

	l := f.ledger(t)
	assert.NotContains(t, l.Tabs, a.ID)
	assert.NotContains(t, l.URLs, urlA)
	assert.Contains(t, l.Tabs, b.ID)

	assert.Equal(t, []memhost.Message{{Title: NotificationTitle, Message: "Closed 1 inactive tabs"}}, f.notifier.Messages())
}

func TestSweep_ThresholdBoundaryIsStrict(t *testing.T) {
	f := newFixture(t)
	exact := f.browser.Open(urlA)
	older := f.browser.Open(urlB)
	threshold := ms(t0) - 3*msPerDay
	f.seed(t, &Ledger{
		Tabs: map[int]int64{exact.ID: threshold, older.ID: threshold - 1},
		URLs: map[string]int64{urlA: threshold, urlB: threshold - 1},
	})

	res, err := f.engine.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Closed)
	assert.True(t, f.browser.Has(exact.ID), "exactly at threshold is kept")
	assert.False(t, f.browser.Has(older.ID), "one millisecond older is closed")
}

func TestSweep_Disabled(t *testing.T) {
	f := newFixture(t)
	a := f.browser.Open(urlA)
	f.seed(t, &Ledger{Tabs: map[int]int64{a.ID: 0}, URLs: map[string]int64{urlA: 0}})
	require.NoError(t, f.engine.SaveSettings(Settings{Enabled: false, InactiveDaysThreshold: 1}))

	res, err := f.engine.Sweep(f.ctx)
	require.NoError(t, err)
	assert.True(t, res.Disabled)
	assert.Zero(t, res.Closed)
	assert.True(t, f.browser.Has(a.ID))
	assert.Empty(t, f.notifier.Messages())
}

func TestSweep_NoDataNoClose(t *testing.T) {
	f := newFixture(t)
	a := f.browser.Open(urlA)

	res, err := f.engine.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Candidates)
	assert.True(t, f.browser.Has(a.ID))
	assert.Empty(t, f.notifier.Messages(), "no notification when nothing was due")
}

func TestSweep_SystemPagesNeverClosed(t *testing.T) {
	f := newFixture(t)
	sys := f.browser.Open("chrome://settings/")
	f.seed(t, &Ledger{Tabs: map[int]int64{sys.ID: 0}, URLs: map[string]int64{}})

	_, err := f.engine.Sweep(f.ctx)
	require.NoError(t, err)
	assert.True(t, f.browser.Has(sys.ID))
}

func TestSweep_CloseFailureIsPerTab(t *testing.T) {
	f := newFixture(t)
	a := f.browser.Open(urlA)
	b := f.browser.Open(urlB)
	c := f.browser.Open(urlC)
	old := ms(t0.Add(-days(10)))
	f.seed(t, &Ledger{
		Tabs: map[int]int64{},
		URLs: map[string]int64{urlA: old, urlB: old, urlC: old},
	})
	f.browser.FailRemove(b.ID, errors.New("tab is pinned"))

	res, err := f.engine.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Candidates)
	assert.Equal(t, 2, res.Closed)
	assert.Equal(t, []int{b.ID}, res.Failed)
	assert.False(t, f.browser.Has(a.ID))
	assert.True(t, f.browser.Has(b.ID))
	assert.False(t, f.browser.Has(c.ID))

	l := f.ledger(t)
	assert.Equal(t, old, l.Tabs[b.ID], "backfill kept for the survivor")
	assert.Equal(t, old, l.URLs[urlB])
	assert.Equal(t, "Closed 2 inactive tabs", f.notifier.Messages()[0].Message)
}

func TestSweep_SyncsDuplicatesFirst(t *testing.T) {
	// A fresh duplicate of a stale page is clamped to the page's age and
	// closed along with it.
	f := newFixture(t)
	a1 := f.browser.Open(urlA)
	a2 := f.browser.Open(urlA)
	f.seed(t, &Ledger{
		Tabs: map[int]int64{a1.ID: ms(t0.Add(-days(5))), a2.ID: ms(t0)},
		URLs: map[string]int64{urlA: ms(t0.Add(-days(5)))},
	})

	res, err := f.engine.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Closed)
}

func TestSweep_QueryFailure(t *testing.T) {
	f := newFixture(t)
	f.browser.FailQuery(errors.New("browser gone"))
	_, err := f.engine.Sweep(f.ctx)
	require.Error(t, err)
}

func TestTestModeThenSweepClosesAll(t *testing.T) {
	f := newFixture(t)
	keep := f.browser.Open(urlA)
	require.NoError(t, f.engine.OnActivated(f.ctx, keep.ID))

	created, err := f.engine.StartTestMode(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultTestTabCount, created)
	assert.Equal(t, 6, f.browser.Len())

	f.advance(time.Minute)
	res, err := f.engine.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Closed)
	assert.Equal(t, 1, f.browser.Len())
	assert.True(t, f.browser.Has(keep.ID))
	assert.Empty(t, f.engine.TestTabs(), "closed test tabs leave the set")
}
