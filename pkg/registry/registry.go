// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

//go:embed actions.json
var embedded []byte

// Default returns the registry compiled into the binary.
func Default() (*ActionRegistry, error) {
	return parse(embedded)
}

func LoadRegistry(path string) (*ActionRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*ActionRegistry, error) {
	var reg ActionRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse action registry: %w", err)
	}
	if len(reg.EnvelopeSchema) == 0 {
		return nil, fmt.Errorf("action registry has no envelope schema")
	}
	seen := make(map[string]bool, len(reg.Actions))
	for _, a := range reg.Actions {
		if a.ID == "" {
			return nil, fmt.Errorf("action registry entry without id")
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("duplicate action %q", a.ID)
		}
		seen[a.ID] = true
	}
	return &reg, nil
}

// Get returns the action with the given id.
func (r *ActionRegistry) Get(id string) (Action, bool) {
	for _, a := range r.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}

// IDs returns the registered action ids in sorted order.
func (r *ActionRegistry) IDs() []string {
	ids := make([]string, 0, len(r.Actions))
	for _, a := range r.Actions {
		ids = append(ids, a.ID)
	}
	sort.Strings(ids)
	return ids
}
