package api

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/adboard-io/adboard-engine/services/connector/api/connectors"
	"github.com/adboard-io/adboard-engine/services/connector/service"
)

type API struct {
	lifecycle *service.Lifecycle
	logger    *zap.Logger
}

func New(lifecycle *service.Lifecycle, logger *zap.Logger) *API {
	return &API{
		lifecycle: lifecycle,
		logger:    logger,
	}
}

func (api *API) Register(e *echo.Echo) {
	connectorsAPI := connectors.New(api.lifecycle, api.logger)
	connectorsAPI.Register(e.Group("/api/v1/connectors"))
}
