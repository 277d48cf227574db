package handlers

import (
	"net/http"

	"ece-marketplace/internal/domain"
	"ece-marketplace/internal/services"
	"ece-marketplace/pkg/logger"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	orders *services.OrderService
	log    logger.Logger
}

type CreateOrderRequest struct {
	UserID       string            `json:"userId"`
	ProjectType  string            `json:"projectType"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Timeline     string            `json:"timeline"`
	Requirements map[string]string `json:"requirements"`
}

type OrderActionRequest struct {
	Action string `json:"action"`
	UserID string `json:"userId"`
	Data   struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"data"`
}

func NewOrderHandler(orders *services.OrderService, log logger.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

// ListOrders serves GET /orders?userId=&status=&page=&limit=, or a single
// order with its revisions and messages when id is given.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	userID := c.QueryParam("userId")
	if userID == "" {
		return fail(c, h.log, domain.Validation("User ID is required"), "")
	}
	ctx := c.Request().Context()

	if id := c.QueryParam("id"); id != "" {
		detail, err := h.orders.GetOrder(ctx, id, userID)
		if err != nil {
			return fail(c, h.log, err, "Failed to fetch orders")
		}
		return respond(c, http.StatusOK, detail, "")
	}

	page, err := h.orders.ListOrders(ctx, userID, c.QueryParam("status"),
		queryInt(c, "page", 1), queryInt(c, "limit", 10))
	if err != nil {
		return fail(c, h.log, err, "Failed to fetch orders")
	}
	return respond(c, http.StatusOK, page, "")
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.log, domain.Validation("Invalid request body"), "")
	}

	order, err := h.orders.CreateOrder(c.Request().Context(), services.OrderRequest{
		UserID:       req.UserID,
		ProjectType:  req.ProjectType,
		Title:        req.Title,
		Description:  req.Description,
		Timeline:     req.Timeline,
		Requirements: req.Requirements,
	})
	if err != nil {
		return fail(c, h.log, err, "Failed to create order")
	}
	return respond(c, http.StatusCreated, order, "Order created successfully")
}

// UpdateOrder serves PUT /orders?id= with the cancel and request_revision
// actions.
func (h *OrderHandler) UpdateOrder(c echo.Context) error {
	orderID := c.QueryParam("id")
	var req OrderActionRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.log, domain.Validation("Invalid request body"), "")
	}
	if orderID == "" || req.Action == "" || req.UserID == "" {
		return fail(c, h.log, domain.Validation("Missing required parameters"), "")
	}
	ctx := c.Request().Context()

	switch req.Action {
	case services.OrderActionCancel:
		order, err := h.orders.CancelOrder(ctx, orderID, req.UserID)
		if err != nil {
			return fail(c, h.log, err, "Failed to update order")
		}
		return respond(c, http.StatusOK, order, "Order cancelled successfully")

	case services.OrderActionRequestRevision:
		result, err := h.orders.RequestRevision(ctx, orderID, req.UserID, services.RevisionRequest{
			Title:       req.Data.Title,
			Description: req.Data.Description,
		})
		if err != nil {
			return fail(c, h.log, err, "Failed to update order")
		}
		return respond(c, http.StatusOK, result, "Revision request submitted successfully")
	}

	return fail(c, h.log, domain.Validation("Invalid action"), "")
}
