package web

import "embed"

// Locales embeds the compiled message bundles, one JSON file per locale.
//
//go:embed locales/*.json
var Locales embed.FS
