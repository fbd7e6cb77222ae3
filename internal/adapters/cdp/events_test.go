package cdp

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/idletab/internal/ports"
)

func TestTranslator_Created(t *testing.T) {
	tr := newTranslator(newRegistry())

	ev, ok := tr.created(&proto.TargetTargetCreated{TargetInfo: pageInfo("AAA", "https://a.example.org/")})
	require.True(t, ok)
	assert.Equal(t, ports.EventCreated, ev.Kind)
	assert.Equal(t, 1, ev.TabID)
	require.NotNil(t, ev.Tab)
	assert.Equal(t, "https://a.example.org/", ev.Tab.URL)
	assert.Equal(t, 1, ev.Tab.ID)

	_, ok = tr.created(&proto.TargetTargetCreated{TargetInfo: &proto.TargetTargetInfo{
		TargetID: "SW", Type: "service_worker",
	}})
	assert.False(t, ok, "non-page targets are not tabs")
}

func TestTranslator_ChangedDistinguishesNavigationFromTitle(t *testing.T) {
	tr := newTranslator(newRegistry())
	tr.created(&proto.TargetTargetCreated{TargetInfo: pageInfo("AAA", "https://a.example.org/")})

	ev, ok := tr.changed(&proto.TargetTargetInfoChanged{TargetInfo: pageInfo("AAA", "https://a.example.org/")})
	require.True(t, ok)
	require.NotNil(t, ev.Change)
	assert.Empty(t, ev.Change.URL, "same URL is not a navigation")
	assert.Equal(t, ports.StatusComplete, ev.Change.Status)

	ev, ok = tr.changed(&proto.TargetTargetInfoChanged{TargetInfo: pageInfo("AAA", "https://b.example.org/")})
	require.True(t, ok)
	assert.Equal(t, ports.EventUpdated, ev.Kind)
	assert.Equal(t, 1, ev.TabID)
	assert.Equal(t, "https://b.example.org/", ev.Change.URL)
	assert.Equal(t, "https://b.example.org/", ev.Tab.URL)
}

func TestTranslator_ChangedUnknownTargetCarriesURL(t *testing.T) {
	tr := newTranslator(newRegistry())
	ev, ok := tr.changed(&proto.TargetTargetInfoChanged{TargetInfo: pageInfo("ZZZ", "https://z.example.org/")})
	require.True(t, ok)
	assert.Equal(t, "https://z.example.org/", ev.Change.URL)
}

func TestTranslator_Destroyed(t *testing.T) {
	reg := newRegistry()
	tr := newTranslator(reg)
	tr.created(&proto.TargetTargetCreated{TargetInfo: pageInfo("AAA", "https://a.example.org/")})

	ev, ok := tr.destroyed(&proto.TargetTargetDestroyed{TargetID: "AAA"})
	require.True(t, ok)
	assert.Equal(t, ports.EventRemoved, ev.Kind)
	assert.Equal(t, 1, ev.TabID)
	assert.Equal(t, 0, reg.len())

	_, ok = tr.destroyed(&proto.TargetTargetDestroyed{TargetID: "AAA"})
	assert.False(t, ok, "unknown targets produce no event")
}
