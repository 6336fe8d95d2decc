// Package schemas holds the JSON Schema documents for the artifacts exchanged
// between pipeline stages.
package schemas

import "embed"

// Schema file names
const (
	ContentCreatorInfo = "content_creator_info.schema.json"
	RankedItems        = "ranked_items.schema.json"
	ContentItems       = "content_items.schema.json"
)

//go:embed *.schema.json
var files embed.FS

// Read returns the raw content of an embedded schema file.
func Read(name string) ([]byte, error) {
	return files.ReadFile(name)
}
