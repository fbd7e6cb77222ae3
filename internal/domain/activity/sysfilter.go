package activity

import (
	"strings"

	"github.com/corey/idletab/internal/ports"
)

// systemPrefixes are URL prefixes of host-internal pages (browser UI,
// extension pages, about pages). They are never tracked or closed.
var systemPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"chrome-search://",
	"edge://",
	"brave://",
	"opera://",
	"vivaldi://",
	"about:",
	"moz-extension://",
	"safari-extension://",
	"devtools://",
	"view-source:",
}

// IsSystemPage reports whether url is empty or points at a host-internal page.
func IsSystemPage(url string) bool {
	if url == "" {
		return true
	}
	for _, p := range systemPrefixes {
		if strings.HasPrefix(url, p) {
			return true
		}
	}
	return false
}

// blankPage is the placeholder a tab shows before its first real load.
const blankPage = "about:blank"

// anchorsNavigation reports whether url is remembered as a tab's last URL.
// Moving off the blank placeholder is the tab's first load, not a navigation.
func anchorsNavigation(url string) bool {
	return url != "" && !strings.HasPrefix(url, blankPage)
}

// validTabID reports whether id names a real tab. Hosts number tabs from 1;
// zero is the unset value and ports.TabIDNone marks non-tab windows.
func validTabID(id int) bool {
	return id > 0
}

// trackable reports whether a tab participates in activity tracking: it has a
// real ID and its effective URL is a resolved, non-system page.
func trackable(t ports.Tab) bool {
	return validTabID(t.ID) && !IsSystemPage(t.EffectiveURL())
}
