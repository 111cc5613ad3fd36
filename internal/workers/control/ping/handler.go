package ping

import (
	"context"

	"render-worker/internal/common/logger"
	"render-worker/internal/models"
)

const ActionType = models.ActionPing

// Handler answers liveness checks. It touches neither the engine nor the
// filesystem.
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
	h.logger.Debug("Ping received", map[string]interface{}{"requestId": cmd.RequestID})
	return models.NewPongResponse(cmd.RequestID), nil
}

func (h *Handler) GetActionType() models.Action {
	return ActionType
}
