package content

import (
	"encoding/json"
	"fmt"
)

// TerrainEntry is the serialized form of one terrain stamp.
type TerrainEntry struct {
	CellKey string `json:"cellKey"`
	Terrain string `json:"terrainType"`
	Variant int    `json:"variant"`
}

// Document is the persisted form of a map's content. Optional sections are
// omitted when empty.
type Document struct {
	Version  int            `json:"version"`
	Terrain  []TerrainEntry `json:"terrain"`
	Paths    []Path         `json:"paths,omitempty"`
	Labels   []Label        `json:"labels,omitempty"`
	Walls    []string       `json:"walls,omitempty"`
	Features []Feature      `json:"features,omitempty"`
}

// DerivedVersion returns the schema version implied by the sections in use:
// 3 when walls or features are present, 2 for paths or labels, otherwise 1.
func (d Document) DerivedVersion() int {
	switch {
	case len(d.Walls) > 0 || len(d.Features) > 0:
		return 3
	case len(d.Paths) > 0 || len(d.Labels) > 0:
		return 2
	default:
		return 1
	}
}

// Marshal encodes d with its derived version.
func (d Document) Marshal() ([]byte, error) {
	d.Version = d.DerivedVersion()
	if d.Terrain == nil {
		d.Terrain = []TerrainEntry{}
	}
	return json.Marshal(d)
}

// ParseDocument decodes a document. An empty input yields an empty document.
func ParseDocument(b []byte) (Document, error) {
	var d Document
	if len(b) == 0 {
		d.Version = 1
		return d, nil
	}
	if err := json.Unmarshal(b, &d); err != nil {
		return Document{}, fmt.Errorf("decode content: %w", err)
	}
	if d.Version < 1 || d.Version > 3 {
		return Document{}, fmt.Errorf("unsupported content version %d", d.Version)
	}
	return d, nil
}
