package generatepdf

import (
	"context"
	"time"

	"render-worker/internal/common/logger"
	"render-worker/internal/common/observability"
	"render-worker/internal/engine"
)

type Input struct {
	SourcePath       string `json:"sourcePath"`
	StylesheetPath   string `json:"stylesheetPath"`
	OutputPath       string `json:"outputPath"`
	WorkingDirectory string `json:"workingDirectory,omitempty"`
	RequestID        int    `json:"requestId"`
}

type Output struct {
	OutputPath string        `json:"outputPath"`
	Payload    []byte        `json:"payload"`
	ImportBase string        `json:"importBase"`
	Duration   time.Duration `json:"duration"`
}

// Renderer is the part of *engine.Engine the service needs.
type Renderer interface {
	Render(ctx context.Context, req engine.Request) ([]byte, error)
}

type ServiceDependencies struct {
	Engine        Renderer
	Logger        logger.Logger
	Observability *observability.Observability
}
