package generatepdf

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"render-worker/internal/common/errors"
	"render-worker/internal/common/logger"
	"render-worker/internal/common/metrics"
	"render-worker/internal/common/observability"
	"render-worker/internal/engine"
)

type Service struct {
	config *Config
	engine Renderer
	logger logger.Logger
	obs    *observability.Observability
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config: config,
		engine: deps.Engine,
		logger: deps.Logger,
		obs:    deps.Observability,
	}
}

// Execute renders one document and persists it to input.OutputPath. Nothing
// is written unless rendering succeeds.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()

	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := checkResources(input); err != nil {
		return nil, err
	}

	importBase := engine.ImportBase(input.WorkingDirectory, input.StylesheetPath)

	s.logger.Info("Generating PDF", map[string]interface{}{
		"requestId":  input.RequestID,
		"source":     input.SourcePath,
		"stylesheet": input.StylesheetPath,
		"output":     input.OutputPath,
		"importBase": importBase,
	})

	payload, err := s.render(ctx, input, importBase)
	if err != nil {
		return nil, err
	}

	if err := s.writeOutput(input.OutputPath, payload); err != nil {
		return nil, errors.NewOutputWriteFailedError(input.OutputPath, err)
	}
	metrics.RenderedBytes.Add(float64(len(payload)))

	return &Output{
		OutputPath: input.OutputPath,
		Payload:    payload,
		ImportBase: importBase,
		Duration:   time.Since(start),
	}, nil
}

func (s *Service) render(ctx context.Context, input *Input, importBase string) ([]byte, error) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	var span trace.Span
	if s.obs != nil {
		ctx, span = s.obs.StartSpan(ctx, "engine.render",
			attribute.Int("requestId", input.RequestID),
			attribute.String("importBase", importBase),
		)
	}

	start := time.Now()
	payload, err := s.engine.Render(ctx, engine.Request{
		SourcePath:     input.SourcePath,
		StylesheetPath: input.StylesheetPath,
		ImportBase:     importBase,
	})
	status := "success"
	if err != nil {
		status = "error"
	}
	if s.obs != nil {
		s.obs.RecordRenderDuration(ctx, time.Since(start), status)
		observability.EndSpan(span, err)
	}
	if err != nil {
		return nil, transformError(err)
	}
	return payload, nil
}

func transformError(err error) error {
	var failure *engine.Failure
	if stderrors.As(err, &failure) {
		return errors.NewTransformFailedError(failure.Cause(), failure, failure.Diagnostic())
	}
	return errors.NewTransformFailedError(engine.Classify(err), err, err.Error())
}

func (s *Service) writeOutput(path string, payload []byte) error {
	if s.config.CreateOutputDirs {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, s.config.DirMode); err != nil {
				return err
			}
		}
	}
	return os.WriteFile(path, payload, s.config.FileMode)
}
