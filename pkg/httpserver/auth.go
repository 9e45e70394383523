package httpserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	XAdboardCompanyIDHeader = "X-Adboard-CompanyID"
	XAdboardUserIDHeader    = "X-Adboard-UserId"
	XAdboardUserRoleHeader  = "X-Adboard-UserRole"
)

type Role string

const (
	ViewerRole   Role = "viewer"
	EditorRole   Role = "editor"
	AdminRole    Role = "admin"
	InternalRole Role = "internal"
)

func AuthorizeHandler(h echo.HandlerFunc, minRole Role) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if err := RequireMinRole(ctx, minRole); err != nil {
			return err
		}

		return h(ctx)
	}
}

func RequireMinRole(ctx echo.Context, minRole Role) error {
	if !hasAccess(GetUserRole(ctx), minRole) {
		return echo.NewHTTPError(http.StatusForbidden, "missing required permission")
	}

	return nil
}

func GetCompanyID(ctx echo.Context) string {
	id := ctx.Request().Header.Get(XAdboardCompanyIDHeader)
	if strings.TrimSpace(id) == "" {
		panic(fmt.Errorf("header %s is missing", XAdboardCompanyIDHeader))
	}

	return id
}

func GetUserID(ctx echo.Context) string {
	id := ctx.Request().Header.Get(XAdboardUserIDHeader)
	if strings.TrimSpace(id) == "" {
		panic(fmt.Errorf("header %s is missing", XAdboardUserIDHeader))
	}

	return id
}

func GetUserRole(ctx echo.Context) Role {
	role := ctx.Request().Header.Get(XAdboardUserRoleHeader)
	if strings.TrimSpace(role) == "" {
		panic(fmt.Errorf("header %s is missing", XAdboardUserRoleHeader))
	}

	return Role(strings.ToLower(role))
}

func roleToPriority(role Role) int {
	switch role {
	case ViewerRole:
		return 0
	case EditorRole:
		return 1
	case AdminRole:
		return 2
	case InternalRole:
		return 99
	default:
		panic("unsupported role: " + role)
	}
}

func hasAccess(currRole, minRole Role) bool {
	return roleToPriority(currRole) >= roleToPriority(minRole)
}
