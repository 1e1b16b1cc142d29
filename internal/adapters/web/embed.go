// Package web serves the gateway as a JSON API over HTTP, plus a small
// preview page that highlights pasted source.
// Binds to localhost only: no network exposure, no auth needed.
package web

import "embed"

//go:embed static/index.html
var staticFS embed.FS
