// pkg/registry/schema.go
package registry

import "encoding/json"

type ActionRegistry struct {
	Version     string `json:"version"`
	LastUpdated string `json:"lastUpdated"`
	// EnvelopeSchema is the JSON schema every inbound command line must satisfy.
	EnvelopeSchema json.RawMessage `json:"envelopeSchema"`
	Actions        []Action        `json:"actions"`
}

type Action struct {
	ID             string   `json:"id"`
	DisplayName    string   `json:"displayName"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	RequiredFields []string `json:"requiredFields"`
	Statuses       []string `json:"statuses"`
	ErrorCodes     []string `json:"errorCodes"`
	Terminal       bool     `json:"terminal"`
	Tags           []string `json:"tags"`
}
