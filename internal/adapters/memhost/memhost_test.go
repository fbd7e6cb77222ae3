package memhost

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/idletab/internal/ports"
)

func TestBrowser_OpenQueryOrder(t *testing.T) {
	b := NewBrowser()
	a := b.Open("https://a.test/")
	c := b.Open("https://c.test/")
	assert.Equal(t, 1, a.ID)
	assert.Equal(t, 2, c.ID)

	tabs, err := b.Query(context.Background())
	require.NoError(t, err)
	require.Len(t, tabs, 2)
	assert.Equal(t, "https://a.test/", tabs[0].URL)
	assert.Equal(t, "https://c.test/", tabs[1].URL)
}

func TestBrowser_GetMissing(t *testing.T) {
	b := NewBrowser()
	_, err := b.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ports.ErrTabNotFound)
}

func TestBrowser_NavigateClearsPending(t *testing.T) {
	b := NewBrowser()
	tab := b.OpenTab(ports.Tab{PendingURL: "https://loading.test/"})
	b.Navigate(tab.ID, "https://done.test/")

	got, err := b.Get(context.Background(), tab.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://done.test/", got.URL)
	assert.Empty(t, got.PendingURL)
}

func TestBrowser_RestartRenumbers(t *testing.T) {
	b := NewBrowser()
	first := b.Open("https://a.test/")
	second := b.Open("https://b.test/")

	mapping := b.Restart()
	require.Len(t, mapping, 2)
	assert.Equal(t, 3, mapping[first.ID])
	assert.Equal(t, 4, mapping[second.ID])
	assert.False(t, b.Has(first.ID))

	got, err := b.Get(context.Background(), mapping[second.ID])
	require.NoError(t, err)
	assert.Equal(t, "https://b.test/", got.URL)
}

func TestBrowser_FaultInjection(t *testing.T) {
	ctx := context.Background()
	b := NewBrowser()
	boom := errors.New("boom")

	b.FailCreate(1, boom)
	_, err := b.Create(ctx, ports.CreateOptions{URL: "https://one.test/"})
	require.NoError(t, err)
	_, err = b.Create(ctx, ports.CreateOptions{URL: "https://two.test/"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, b.Len())

	b.FailRemove(1, boom)
	assert.ErrorIs(t, b.Remove(ctx, 1), boom)
	assert.True(t, b.Has(1))

	b.FailQuery(boom)
	_, err = b.Query(ctx)
	assert.ErrorIs(t, err, boom)
	b.FailQuery(nil)
	_, err = b.Query(ctx)
	assert.NoError(t, err)
}

func TestBrowser_RemoveAndActivate(t *testing.T) {
	ctx := context.Background()
	b := NewBrowser()
	tab := b.Open("https://a.test/")

	require.NoError(t, b.Activate(ctx, tab.ID))
	assert.Equal(t, []int{tab.ID}, b.Activated())

	require.NoError(t, b.Remove(ctx, tab.ID))
	assert.ErrorIs(t, b.Remove(ctx, tab.ID), ports.ErrTabNotFound)
	assert.ErrorIs(t, b.Activate(ctx, tab.ID), ports.ErrTabNotFound)
}

func TestBrowser_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBrowser().Query(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKV_SetGetDelete(t *testing.T) {
	kv := NewKV()
	require.NoError(t, kv.Set(map[string][]byte{"a": []byte("1"), "b": []byte("2")}))

	got, err := kv.Get("a", "b", "missing")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, got)

	// Returned slices are copies.
	got["a"][0] = 'x'
	again, err := kv.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), again["a"])

	require.NoError(t, kv.Set(map[string][]byte{"a": nil}))
	got, err = kv.Get("a")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 2, kv.Writes())
}

func TestKV_FailSet(t *testing.T) {
	kv := NewKV()
	boom := errors.New("disk full")
	kv.FailSet(boom)
	assert.ErrorIs(t, kv.Set(map[string][]byte{"a": []byte("1")}), boom)
	assert.Equal(t, 0, kv.Writes())
}

func TestNotifier_Records(t *testing.T) {
	var n Notifier
	n.Notify("title", "one")
	n.Notify("title", "two")
	msgs := n.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, Message{Title: "title", Message: "two"}, msgs[1])
}
