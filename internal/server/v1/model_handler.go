package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-router/pkg/api"
)

// ModelLister lists the providers a user can pick from.
type ModelLister interface {
	Summaries() []api.AIModel
}

type ModelHandler struct {
	models ModelLister
}

func NewModelHandler(models ModelLister) *ModelHandler {
	return &ModelHandler{models: models}
}

// ListModels returns the enabled providers in configuration order.
func (h *ModelHandler) ListModels(c *gin.Context) {
	models := h.models.Summaries()
	if models == nil {
		models = []api.AIModel{}
	}
	c.JSON(http.StatusOK, api.AIModelsResponse{Models: models})
}
