package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corey/idletab/internal/ports"
)

func TestIsSystemPage(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"", true},
		{"chrome://settings", true},
		{"chrome-extension://abc/popup.html", true},
		{"chrome-search://local-ntp", true},
		{"edge://newtab", true},
		{"brave://rewards", true},
		{"opera://startpage", true},
		{"vivaldi://settings", true},
		{"about:blank", true},
		{"moz-extension://x/y", true},
		{"safari-extension://x/y", true},
		{"devtools://devtools/bundled/inspector.html", true},
		{"view-source:https://example.com", true},
		{"https://example.com/", false},
		{"http://localhost:8080/", false},
		{"file:///tmp/report.html", false},
		{"https://example.com/chrome://", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSystemPage(tt.url))
		})
	}
}

func TestTrackable(t *testing.T) {
	assert.True(t, trackable(ports.Tab{ID: 1, URL: urlA}))
	assert.True(t, trackable(ports.Tab{ID: 1, PendingURL: urlA}), "pending URL counts while loading")
	assert.False(t, trackable(ports.Tab{ID: ports.TabIDNone, URL: urlA}))
	assert.False(t, trackable(ports.Tab{ID: 0, URL: urlA}))
	assert.False(t, trackable(ports.Tab{ID: 1}))
	assert.False(t, trackable(ports.Tab{ID: 1, URL: "chrome://newtab/"}))
}

func TestAnchorsNavigation(t *testing.T) {
	assert.True(t, anchorsNavigation("chrome://newtab/"))
	assert.True(t, anchorsNavigation(urlA))
	assert.False(t, anchorsNavigation(""))
	assert.False(t, anchorsNavigation("about:blank"))
	assert.False(t, anchorsNavigation("about:blank#frame"))
}
