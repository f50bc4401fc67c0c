// Package templates embeds the portal's HTML templates.
package templates

import "embed"

//go:embed *.html pages/*.html
var FS embed.FS
