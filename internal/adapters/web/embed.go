// Package web serves the idletab dashboard and JSON API over HTTP with Fiber.
// Binds to localhost by default — no network exposure, no auth needed.
package web

import _ "embed"

//go:embed static/index.html
var indexHTML []byte
