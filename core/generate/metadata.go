package generate

import (
	"maps"
	"slices"
)

// Metadata collects facts about the analyzed app (package manager, detected
// frameworks) for display and tooling output. Values are informational and
// never affect the plan itself.
type Metadata struct {
	Properties map[string]string `json:"properties"`
}

func NewMetadata() *Metadata {
	return &Metadata{
		Properties: make(map[string]string),
	}
}

func (m *Metadata) Set(key string, value string) {
	if value == "" {
		return
	}

	m.Properties[key] = value
}

func (m *Metadata) SetBool(key string, value bool) {
	if value {
		m.Properties[key] = "true"
	}
}

func (m *Metadata) Get(key string) string {
	return m.Properties[key]
}

// SortedKeys supports deterministic rendering of the properties
func (m *Metadata) SortedKeys() []string {
	return slices.Sorted(maps.Keys(m.Properties))
}
