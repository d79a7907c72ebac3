package assets

import _ "embed"

// ModelsData holds the raw JSON catalog of suggested models per provider.
//
//go:embed models.json
var ModelsData []byte
