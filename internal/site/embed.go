// ABOUTME: Embeds page templates into the binary using go:embed
// ABOUTME: Provides templateFS for parsing templates at build time

package site

import "embed"

//go:embed templates/*.html
var templateFS embed.FS
