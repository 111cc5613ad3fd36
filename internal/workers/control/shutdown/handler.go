package shutdown

import (
	"context"

	"render-worker/internal/common/logger"
	"render-worker/internal/models"
)

const ActionType = models.ActionShutdown

// Handler acknowledges a shutdown request. Stopping the read loop is left to
// the caller once the response has been written; see Response.IsTerminal.
type Handler struct {
	logger logger.Logger
}

func NewHandler(log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{logger: log.WithFields(map[string]interface{}{"action": string(ActionType)})}
}

func (h *Handler) Handle(_ context.Context, cmd *models.Command) (*models.Response, error) {
	h.logger.Info("Shutdown requested", map[string]interface{}{"requestId": cmd.RequestID})
	return models.NewShutdownResponse(cmd.RequestID), nil
}

func (h *Handler) GetActionType() models.Action {
	return ActionType
}
