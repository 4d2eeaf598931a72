package imposter

import (
	_ "embed"
)

// Embed the item catalog (domains and their items)
//
//go:embed static/catalog.yaml
var CatalogYAML []byte
