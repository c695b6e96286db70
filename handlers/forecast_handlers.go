package handlers

import (
	"bytes"

	"github.com/gofiber/fiber/v2"

	"multihorizon/models"
	"multihorizon/regressors"
	"multihorizon/session"
	"multihorizon/utils"
)

var errNoSession = models.NewError(models.KindUnauthorized, "Not logged in. Please log in to continue.")

const maxPageSize = 100

// active returns the open session; the session group middleware guarantees one
// exists, but a concurrent logout may still have closed it.
func (h *Handler) active() (*session.Controller, error) {
	ctrl := h.session()
	if ctrl == nil {
		return nil, errNoSession
	}
	return ctrl, nil
}

// HandleGetSession returns the current snapshot and request counters.
// GET /api/v1/forecast/session
func (h *Handler) HandleGetSession(c *fiber.Ctx) error {
	ctrl, err := h.active()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "data": ctrl.Snapshot(), "stats": ctrl.Stats()})
}

// HandleGetRegressors returns the regressor vectors and the supported horizons.
// GET /api/v1/forecast/regressors
func (h *Handler) HandleGetRegressors(c *fiber.Ctx) error {
	ctrl, err := h.active()
	if err != nil {
		return respondError(c, err)
	}
	store := ctrl.Store()
	return c.JSON(fiber.Map{
		"status":   "success",
		"data":     store.Snapshot(),
		"capacity": store.Capacity(),
		"horizons": store.Horizons(),
	})
}

type horizonRequest struct {
	Days int `json:"days"`
}

// HandleSetHorizon selects the forecast horizon.
// PUT /api/v1/forecast/horizon
func (h *Handler) HandleSetHorizon(c *fiber.Ctx) error {
	ctrl, err := h.active()
	if err != nil {
		return respondError(c, err)
	}
	var req horizonRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	days, err := ctrl.SetHorizon(req.Days)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "data": fiber.Map{"horizon": days}})
}

// HandleToggle flips one day of the holiday or promotion vector.
// POST /api/v1/forecast/toggles/:vector/:day
func (h *Handler) HandleToggle(c *fiber.Ctx) error {
	ctrl, err := h.active()
	if err != nil {
		return respondError(c, err)
	}
	vector, ok := regressors.ParseVector(c.Params("vector"))
	if !ok {
		return badRequest(c, "Unknown regressor, expected holiday or promotion")
	}
	day, err := c.ParamsInt("day")
	if err != nil {
		return badRequest(c, "Day index must be an integer")
	}
	values, err := ctrl.Toggle(vector, day)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "data": fiber.Map{"vector": vector.String(), "values": values}})
}

type itemRequest struct {
	ItemName string `json:"item_name"`
}

// HandleSetItem changes the forecast item.
// PUT /api/v1/forecast/item
func (h *Handler) HandleSetItem(c *fiber.Ctx) error {
	ctrl, err := h.active()
	if err != nil {
		return respondError(c, err)
	}
	var req itemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	if utils.NormalizeName(req.ItemName) == "" {
		return badRequest(c, "item_name is required")
	}
	if err := ctrl.SetItemName(req.ItemName); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "data": ctrl.Snapshot()})
}

// HandleRefresh re-issues the forecast for the current parameters.
// POST /api/v1/forecast/refresh
func (h *Handler) HandleRefresh(c *fiber.Ctx) error {
	ctrl, err := h.active()
	if err != nil {
		return respondError(c, err)
	}
	ctrl.Refresh()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "success", "data": ctrl.Snapshot()})
}

// HandleSave persists the forecast on screen.
// POST /api/v1/forecast/save
func (h *Handler) HandleSave(c *fiber.Ctx) error {
	ctrl, err := h.active()
	if err != nil {
		return respondError(c, err)
	}
	if err := ctrl.Save(c.UserContext()); err != nil {
		return h.sessionError(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "data": ctrl.Snapshot()})
}

// HandleGetInsights hands the Ready forecast to the insights view.
// GET /api/v1/forecast/insights
func (h *Handler) HandleGetInsights(c *fiber.Ctx) error {
	ctrl, err := h.active()
	if err != nil {
		return respondError(c, err)
	}
	handoff, err := ctrl.Handoff(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "data": handoff})
}

// HandleUploadHistory forwards a sales history workbook and refreshes the forecast.
// POST /api/v1/forecast/uploads
func (h *Handler) HandleUploadHistory(c *fiber.Ctx) error {
	ctrl, err := h.active()
	if err != nil {
		return respondError(c, err)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file part")
	}
	f, err := fh.Open()
	if err != nil {
		h.logger.Printf("[SESSION] could not open uploaded file %s: %v", fh.Filename, err)
		return badRequest(c, "Could not read uploaded file")
	}
	defer f.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		h.logger.Printf("[SESSION] could not read uploaded file %s: %v", fh.Filename, err)
		return badRequest(c, "Could not read uploaded file")
	}

	receipt, err := h.api.UploadHistory(c.UserContext(), fh.Filename, buf.Bytes(), ctrl.Auth().Token)
	if err != nil {
		return h.sessionError(c, err)
	}
	ctrl.Refresh()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": receipt})
}

// HandleListPredictions pages through the forecasts saved on the service.
// GET /api/v1/forecast/predictions?page=1&pageSize=10
func (h *Handler) HandleListPredictions(c *fiber.Ctx) error {
	ctrl, err := h.active()
	if err != nil {
		return respondError(c, err)
	}
	saved, err := h.api.ListPredictions(c.UserContext(), ctrl.Auth().Token)
	if err != nil {
		return h.sessionError(c, err)
	}

	pageSize := c.QueryInt("pageSize", 10)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	p := utils.CreatePagination(len(saved), c.QueryInt("page", 1), pageSize)
	start, end := utils.PageBounds(len(saved), p)
	resp := models.PaginatedPredictionsResponse{
		Data: append([]models.SavedForecast{}, saved[start:end]...),
		Pagination: models.PaginationInfo{
			TotalItems:  p.TotalItems,
			TotalPages:  p.TotalPages,
			CurrentPage: p.CurrentPage,
			PageSize:    p.PageSize,
		},
	}
	return c.JSON(fiber.Map{"status": "success", "data": resp})
}
