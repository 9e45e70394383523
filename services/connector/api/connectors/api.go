package connectors

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/adboard-io/adboard-engine/pkg/httpserver"
	"github.com/adboard-io/adboard-engine/pkg/provider"
	"github.com/adboard-io/adboard-engine/services/connector/api/entity"
	"github.com/adboard-io/adboard-engine/services/connector/model"
	"github.com/adboard-io/adboard-engine/services/connector/service"
	"github.com/adboard-io/adboard-engine/services/connector/tenant"
)

type API struct {
	lifecycle *service.Lifecycle
	logger    *zap.Logger
}

func New(lifecycle *service.Lifecycle, logger *zap.Logger) API {
	return API{
		lifecycle: lifecycle,
		logger:    logger.Named("api").Named("connectors"),
	}
}

func (a API) Register(g *echo.Group) {
	g.POST("", httpserver.AuthorizeHandler(a.Create, httpserver.EditorRole))
	g.GET("", httpserver.AuthorizeHandler(a.List, httpserver.ViewerRole))
	g.GET("/exists", httpserver.AuthorizeHandler(a.Exists, httpserver.ViewerRole))
	g.GET("/:connectorId", httpserver.AuthorizeHandler(a.Get, httpserver.ViewerRole))
	g.PUT("/:connectorId/credentials", httpserver.AuthorizeHandler(a.UpdateCredentials, httpserver.EditorRole))
	g.DELETE("/:connectorId", httpserver.AuthorizeHandler(a.Delete, httpserver.EditorRole))
}

// Create provisions a connector from a completed OAuth consent. The
// duplicate-account check runs here, before provisioning: the orchestrator
// itself does not dedupe.
func (a API) Create(ctx echo.Context) error {
	companyID := httpserver.GetCompanyID(ctx)

	var req entity.CreateConnectorRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, entity.NewError(err))
	}
	if err := ctx.Validate(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, entity.NewError(err))
	}

	providerType, err := provider.ParseType(req.ProviderType)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, entity.NewError(err))
	}
	desc, err := provider.GetDescriptor(providerType)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, entity.NewError(err))
	}
	creds, err := desc.Parse(req.Credentials)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, entity.NewError(err))
	}

	rctx := ctx.Request().Context()

	exists, err := a.lifecycle.AccountAlreadyConnected(rctx, companyID, providerType, creds.AccountID())
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, entity.NewError(err))
	}
	if exists {
		return ctx.JSON(http.StatusConflict, entity.Error{Message: "account is already connected"})
	}

	connectorID := uuid.New()
	err = a.lifecycle.Provision(rctx, service.ProvisionRequest{
		ConnectorID:  connectorID,
		CompanyID:    companyID,
		ProviderType: providerType,
		Credentials:  creds,
		ExtraInfo:    map[string]any{"accountId": creds.AccountID()},
		Comment:      req.Comment,
	})
	if err != nil {
		a.logger.Error("provisioning failed",
			zap.String("company_id", companyID),
			zap.String("connector_id", connectorID.String()),
			zap.Error(err))

		var partialErr *service.PartialProvisioningError
		switch {
		case errors.Is(err, tenant.ErrCompanyNotFound):
			return ctx.JSON(http.StatusNotFound, entity.NewError(err))
		case errors.Is(err, tenant.ErrTableExists),
			errors.Is(err, service.ErrConnectorArchived),
			errors.Is(err, service.ErrConnectorMismatch):
			return ctx.JSON(http.StatusConflict, entity.NewError(err))
		case errors.As(err, &partialErr):
			// Metadata committed: the connector exists but is degraded.
			return ctx.JSON(http.StatusBadGateway, entity.NewError(err))
		default:
			return ctx.JSON(http.StatusInternalServerError, entity.NewError(err))
		}
	}

	connector, meta, err := a.lifecycle.Get(rctx, connectorID)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, entity.NewError(err))
	}

	return ctx.JSON(http.StatusCreated, toConnectorWithMetadata(connector, meta, companyID))
}

func (a API) List(ctx echo.Context) error {
	companyID := httpserver.GetCompanyID(ctx)
	providerTypes := provider.ParseTypes(httpserver.QueryArrayParam(ctx, "provider"))

	listings, err := a.lifecycle.ListByCompany(ctx.Request().Context(), companyID)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, entity.NewError(err))
	}

	resp := make([]entity.Connector, 0, len(listings))
	for _, l := range listings {
		if len(providerTypes) > 0 && !containsType(providerTypes, l.Connector.ProviderType) {
			continue
		}
		resp = append(resp, toConnector(&l.Connector, l.Mapping.CompanyID))
	}

	return ctx.JSON(http.StatusOK, resp)
}

func containsType(types []provider.Type, t provider.Type) bool {
	for _, pt := range types {
		if pt == t {
			return true
		}
	}
	return false
}

func (a API) Exists(ctx echo.Context) error {
	companyID := httpserver.GetCompanyID(ctx)

	providerType, err := provider.ParseType(ctx.QueryParam("provider"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, entity.NewError(err))
	}
	accountID := ctx.QueryParam("accountId")
	if accountID == "" {
		return ctx.JSON(http.StatusBadRequest, entity.Error{Message: "accountId is required"})
	}

	exists, err := a.lifecycle.AccountAlreadyConnected(ctx.Request().Context(), companyID, providerType, accountID)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, entity.NewError(err))
	}

	return ctx.JSON(http.StatusOK, entity.AccountExistsResponse{Exists: exists})
}

func (a API) Get(ctx echo.Context) error {
	connectorID, err := uuid.Parse(ctx.Param("connectorId"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, entity.NewError(err))
	}

	connector, meta, err := a.lifecycle.Get(ctx.Request().Context(), connectorID)
	if err != nil {
		if errors.Is(err, service.ErrConnectorNotFound) {
			return ctx.JSON(http.StatusNotFound, entity.NewError(err))
		}
		return ctx.JSON(http.StatusInternalServerError, entity.NewError(err))
	}

	return ctx.JSON(http.StatusOK, toConnectorWithMetadata(connector, meta, ""))
}

func (a API) UpdateCredentials(ctx echo.Context) error {
	connectorID, err := uuid.Parse(ctx.Param("connectorId"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, entity.NewError(err))
	}

	var req entity.UpdateCredentialsRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, entity.NewError(err))
	}
	if err := ctx.Validate(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, entity.NewError(err))
	}

	rctx := ctx.Request().Context()

	connector, _, err := a.lifecycle.Get(rctx, connectorID)
	if err != nil {
		if errors.Is(err, service.ErrConnectorNotFound) {
			return ctx.JSON(http.StatusNotFound, entity.NewError(err))
		}
		return ctx.JSON(http.StatusInternalServerError, entity.NewError(err))
	}

	desc, err := provider.GetDescriptor(connector.ProviderType)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, entity.NewError(err))
	}
	creds, err := desc.Parse(req.Credentials)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, entity.NewError(err))
	}

	if err := a.lifecycle.UpdateCredentials(rctx, connectorID, creds); err != nil {
		return ctx.JSON(http.StatusInternalServerError, entity.NewError(err))
	}

	return ctx.NoContent(http.StatusOK)
}

func (a API) Delete(ctx echo.Context) error {
	connectorID, err := uuid.Parse(ctx.Param("connectorId"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, entity.NewError(err))
	}

	err = a.lifecycle.Teardown(ctx.Request().Context(), connectorID, ctx.QueryParam("accountId"), "")
	if err != nil {
		if errors.Is(err, service.ErrConnectorNotFound) {
			return ctx.JSON(http.StatusNotFound, entity.NewError(err))
		}
		return ctx.JSON(http.StatusInternalServerError, entity.NewError(err))
	}

	return ctx.NoContent(http.StatusOK)
}

func toConnector(m *model.Connector, companyID string) entity.Connector {
	return entity.Connector{
		ID:             m.ID.String(),
		CompanyID:      companyID,
		ProviderType:   m.ProviderType.String(),
		LifecycleState: string(m.LifecycleState),
		HealthState:    string(m.HealthState),
		HealthReason:   m.HealthReason,
		Comment:        m.Comment,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toConnectorWithMetadata(m *model.Connector, meta *model.ConnectorMetadata, companyID string) entity.ConnectorWithMetadata {
	return entity.ConnectorWithMetadata{
		Connector:                 toConnector(m, companyID),
		TableType:                 meta.TableType,
		HistoricalCursorThreshold: meta.HistoricalCursorThreshold,
	}
}
