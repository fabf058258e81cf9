package soilid

import (
	"embed"
	"encoding/json"
)

//go:embed data/*.json
var sampleFS embed.FS

// SampleList is a recorded list response used for client development.
func SampleList() (json.RawMessage, error) {
	return sampleFS.ReadFile("data/list.json")
}

// SampleRank is a recorded rank response matching SampleList.
func SampleRank() (json.RawMessage, error) {
	return sampleFS.ReadFile("data/rank.json")
}
