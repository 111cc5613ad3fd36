// internal/models/command.go
package models

import "encoding/json"

type Action string

const (
	ActionGenerate Action = "generate"
	ActionPing     Action = "ping"
	ActionShutdown Action = "shutdown"
)

// Command is one decoded protocol line. It is not modified after decoding.
type Command struct {
	Action           Action `json:"action"`
	SourcePath       string `json:"sourcePath,omitempty"`
	StylesheetPath   string `json:"stylesheetPath,omitempty"`
	OutputPath       string `json:"outputPath,omitempty"`
	WorkingDirectory string `json:"workingDirectory,omitempty"`
	RequestID        int    `json:"requestId"`
}

// UnmarshalJSON accepts the older xmlPath, xslPath and workingDir field
// names. The current names take precedence when both are sent.
func (c *Command) UnmarshalJSON(data []byte) error {
	type plain Command
	var aux struct {
		plain
		XMLPath    string `json:"xmlPath"`
		XSLPath    string `json:"xslPath"`
		WorkingDir string `json:"workingDir"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*c = Command(aux.plain)
	if c.SourcePath == "" {
		c.SourcePath = aux.XMLPath
	}
	if c.StylesheetPath == "" {
		c.StylesheetPath = aux.XSLPath
	}
	if c.WorkingDirectory == "" {
		c.WorkingDirectory = aux.WorkingDir
	}
	return nil
}
