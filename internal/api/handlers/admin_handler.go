package handlers

import (
	"net/http"

	"ece-marketplace/internal/domain"
	"ece-marketplace/internal/services"
	"ece-marketplace/pkg/logger"

	"github.com/labstack/echo/v4"
)

type AdminHandler struct {
	orders *services.OrderService
	log    logger.Logger
}

type AdminOrderRequest struct {
	OrderID string `json:"orderId"`
	Action  string `json:"action"`
	Data    struct {
		Status             string  `json:"status"`
		ProgressPercentage *int    `json:"progressPercentage"`
		CurrentMilestone   *string `json:"currentMilestone"`
		Message            string  `json:"message"`
		MessageType        string  `json:"messageType"`
		Subject            string  `json:"subject"`
	} `json:"data"`
}

func NewAdminHandler(orders *services.OrderService, log logger.Logger) *AdminHandler {
	return &AdminHandler{orders: orders, log: log}
}

// UpdateOrder serves PUT /admin/orders: update_status and complete_order.
func (h *AdminHandler) UpdateOrder(c echo.Context) error {
	var req AdminOrderRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.log, domain.Validation("Invalid request body"), "")
	}
	if req.OrderID == "" || req.Action == "" {
		return fail(c, h.log, domain.Validation("Order ID and action are required"), "")
	}
	ctx := c.Request().Context()

	switch req.Action {
	case services.AdminActionUpdateStatus:
		if req.Data.Status == "" {
			return fail(c, h.log, domain.Validation("Status is required"), "")
		}
		order, err := h.orders.UpdateOrderStatus(ctx, req.OrderID, services.StatusUpdate{
			Status:    domain.OrderStatus(req.Data.Status),
			Progress:  req.Data.ProgressPercentage,
			Milestone: req.Data.CurrentMilestone,
			Message:   req.Data.Message,
		})
		if err != nil {
			return fail(c, h.log, err, "Internal server error")
		}
		return respond(c, http.StatusOK, order, "Order status updated successfully")

	case services.AdminActionCompleteOrder:
		order, err := h.orders.CompleteOrder(ctx, req.OrderID)
		if err != nil {
			return fail(c, h.log, err, "Internal server error")
		}
		return respond(c, http.StatusOK, order, "Order marked as completed")
	}

	return fail(c, h.log, domain.Validation("Invalid action"), "")
}

// SendMessage serves POST /admin/orders with the send_message action.
func (h *AdminHandler) SendMessage(c echo.Context) error {
	var req AdminOrderRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.log, domain.Validation("Invalid request body"), "")
	}
	if req.OrderID == "" || req.Action == "" {
		return fail(c, h.log, domain.Validation("Action and order ID are required"), "")
	}
	if req.Action != "send_message" {
		return fail(c, h.log, domain.Validation("Invalid action"), "")
	}

	msg, err := h.orders.SendMessage(c.Request().Context(), req.OrderID, req.Data.MessageType,
		req.Data.Subject, req.Data.Message)
	if err != nil {
		return fail(c, h.log, err, "Internal server error")
	}
	return respond(c, http.StatusOK, msg, "Message sent successfully")
}
