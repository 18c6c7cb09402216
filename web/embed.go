package web

import "embed"

// Static embeds the single-page UI served at / and /static/.
//
//go:embed static
var Static embed.FS
