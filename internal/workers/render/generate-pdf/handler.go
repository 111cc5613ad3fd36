package generatepdf

import (
	"context"
	"fmt"

	"render-worker/internal/common/config"
	"render-worker/internal/common/logger"
	"render-worker/internal/common/observability"
	"render-worker/internal/models"
)

const ActionType = models.ActionGenerate

type Handler struct {
	config  *Config
	logger  logger.Logger
	service *Service
}

type HandlerOptions struct {
	AppConfig     *config.Config
	Engine        Renderer
	Observability *observability.Observability
	CustomConfig  *Config
	Logger        logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for generate-pdf: %w", err)
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("generate-pdf requires an engine")
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}
	loggerInstance = loggerInstance.WithFields(map[string]interface{}{"action": string(ActionType)})

	handler := &Handler{
		config: workerConfig,
		logger: loggerInstance,
	}
	handler.service = NewService(ServiceDependencies{
		Engine:        opts.Engine,
		Logger:        loggerInstance,
		Observability: opts.Observability,
	}, workerConfig)

	return handler, nil
}

// Handle runs one generate command. Errors are returned, not converted; the
// dispatcher turns them into error responses.
func (h *Handler) Handle(ctx context.Context, cmd *models.Command) (*models.Response, error) {
	if !h.config.Enabled {
		return nil, fmt.Errorf("generate-pdf is disabled by configuration")
	}

	output, err := h.Execute(ctx, &Input{
		SourcePath:       cmd.SourcePath,
		StylesheetPath:   cmd.StylesheetPath,
		OutputPath:       cmd.OutputPath,
		WorkingDirectory: cmd.WorkingDirectory,
		RequestID:        cmd.RequestID,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("PDF generated", map[string]interface{}{
		"requestId":  cmd.RequestID,
		"output":     output.OutputPath,
		"bytes":      len(output.Payload),
		"durationMs": output.Duration.Milliseconds(),
	})

	return models.NewSuccessResponse(
		cmd.RequestID,
		output.OutputPath,
		output.Payload,
		fmt.Sprintf("PDF generated successfully in %dms", output.Duration.Milliseconds()),
	), nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.service.Execute(ctx, input)
}

func (h *Handler) GetActionType() models.Action {
	return ActionType
}
