package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/verdantiq/esgcopilot/internal/store"
)

type CompaniesHandler struct {
	Store *store.Store
}

func (h *CompaniesHandler) Register(g *echo.Group) {
	g.POST("", h.create)
	g.GET("", h.list)
}

func (h *CompaniesHandler) create(c echo.Context) error {
	var req struct {
		Name   string `json:"name"`
		Sector string `json:"sector"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name required")
	}
	id, err := h.Store.CreateCompany(c.Request().Context(), req.Name, req.Sector)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return echo.NewHTTPError(http.StatusConflict, "company already exists")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

func (h *CompaniesHandler) list(c echo.Context) error {
	items, err := h.Store.ListCompanies(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []store.Company{}
	}
	return c.JSON(http.StatusOK, items)
}
