package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ece-marketplace/internal/domain"
	"ece-marketplace/pkg/logger"
	"ece-marketplace/pkg/utils"
)

const (
	OrderActionCancel          = "cancel"
	OrderActionRequestRevision = "request_revision"

	AdminActionUpdateStatus  = "update_status"
	AdminActionCompleteOrder = "complete_order"

	MessageSystemAlert    = "SYSTEM_ALERT"
	MessageProgressUpdate = "PROGRESS_UPDATE"
	MessageDelivery       = "DELIVERY_NOTIFICATION"
	MessageGeneral        = "MESSAGE"
)

type OrderRequest struct {
	UserID       string
	ProjectType  string
	Title        string
	Description  string
	Timeline     string
	Requirements map[string]string
}

type RevisionRequest struct {
	Title       string
	Description string
}

type StatusUpdate struct {
	Status    domain.OrderStatus
	Progress  *int
	Milestone *string
	Message   string
}

type OrderPage struct {
	Orders     []*domain.Order `json:"orders"`
	Pagination Pagination      `json:"pagination"`
}

type OrderDetail struct {
	*domain.Order
	Revisions      []*domain.OrderRevision      `json:"revisions"`
	Communications []*domain.OrderCommunication `json:"communications"`
}

type RevisionResult struct {
	Order    *domain.Order         `json:"order"`
	Revision *domain.OrderRevision `json:"revision"`
}

// OrderService sells development projects for ECE. The quoted cost leaves
// the buyer's balance when the order is placed and comes back only if the
// order is cancelled while still cancellable.
type OrderService struct {
	tx     domain.Transactor
	users  domain.UserRepository
	orders domain.OrderRepository
	log    logger.Logger
}

func NewOrderService(tx domain.Transactor, users domain.UserRepository, orders domain.OrderRepository, log logger.Logger) *OrderService {
	return &OrderService{tx: tx, users: users, orders: orders, log: log}
}

func (s *OrderService) CreateOrder(ctx context.Context, req OrderRequest) (*domain.Order, error) {
	if req.UserID == "" || req.ProjectType == "" || req.Title == "" || req.Description == "" || req.Timeline == "" {
		return nil, domain.Validation("Missing required fields")
	}
	cost, err := QuoteOrder(req.ProjectType, req.Timeline)
	if err != nil {
		return nil, err
	}
	if req.Requirements == nil {
		req.Requirements = map[string]string{}
	}

	order := &domain.Order{
		ID:                 utils.GenerateID("ord"),
		UserID:             req.UserID,
		ProjectType:        req.ProjectType,
		Title:              req.Title,
		Description:        req.Description,
		Requirements:       req.Requirements,
		Timeline:           req.Timeline,
		EstimatedCost:      cost,
		Currency:           domain.Currency,
		Status:             domain.OrderPending,
		Priority:           "STANDARD",
		ProgressPercentage: 0,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.users.GetUser(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NotFound("User not found")
			}
			return err
		}

		if err := s.users.Debit(ctx, req.UserID, cost); err != nil {
			if errors.Is(err, domain.ErrInsufficientBalance) {
				return domain.InsufficientBalance("Insufficient ECE balance. Required: %s ECE, Available: %s ECE",
					cost.String(), user.Balance.String())
			}
			return err
		}

		if err := s.orders.CreateOrder(ctx, order); err != nil {
			return err
		}

		return s.orders.CreateCommunication(ctx, &domain.OrderCommunication{
			ID:          utils.GenerateID("comm"),
			OrderID:     order.ID,
			UserID:      req.UserID,
			MessageType: MessageSystemAlert,
			Subject:     "Order Created Successfully",
			Message: fmt.Sprintf("Your order %q has been created and is pending review. "+
				"We'll begin work shortly and keep you updated on progress.", order.Title),
			IsFromAdmin: true,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Order created", "order_id", order.ID, "user_id", order.UserID,
		"project_type", order.ProjectType, "cost", cost.String())
	return order, nil
}

// CancelOrder refunds the escrowed cost. The status transition is
// conditional, so concurrent cancels refund at most once.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	var order *domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetOrder(ctx, orderID, userID)
		if err != nil {
			return err
		}
		if !order.Status.Cancellable() {
			return domain.InvalidState("Order cannot be cancelled at this stage")
		}

		ok, err := s.orders.TransitionStatus(ctx, orderID,
			[]domain.OrderStatus{domain.OrderPending, domain.OrderApproved}, domain.OrderCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return domain.InvalidState("Order cannot be cancelled at this stage")
		}

		if err := s.users.Credit(ctx, order.UserID, order.EstimatedCost); err != nil {
			return err
		}
		order, err = s.orders.GetOrder(ctx, orderID, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Order cancelled", "order_id", orderID, "user_id", userID,
		"refund", order.EstimatedCost.String())
	return order, nil
}

func (s *OrderService) RequestRevision(ctx context.Context, orderID, userID string, req RevisionRequest) (*RevisionResult, error) {
	if req.Title == "" || req.Description == "" {
		return nil, domain.Validation("Revision title and description are required")
	}

	result := &RevisionResult{}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetOrder(ctx, orderID, userID)
		if err != nil {
			return err
		}
		if order.Status.Final() {
			return domain.InvalidState("Revisions cannot be requested for a %s order", strings.ToLower(string(order.Status)))
		}

		ok, err := s.orders.TransitionStatus(ctx, orderID, openOrderStatuses(), domain.OrderRevisionRequested)
		if err != nil {
			return err
		}
		if !ok {
			return domain.InvalidState("Order can no longer be revised")
		}

		number, err := s.orders.NextRevisionNumber(ctx, orderID)
		if err != nil {
			return err
		}
		revision := &domain.OrderRevision{
			ID:             utils.GenerateID("rev"),
			OrderID:        orderID,
			UserID:         userID,
			RevisionNumber: number,
			Title:          req.Title,
			Description:    req.Description,
			Status:         "PENDING",
		}
		if err := s.orders.CreateRevision(ctx, revision); err != nil {
			return err
		}

		result.Revision = revision
		result.Order, err = s.orders.GetOrder(ctx, orderID, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Revision requested", "order_id", orderID, "user_id", userID,
		"revision", result.Revision.RevisionNumber)
	return result, nil
}

// ListOrders pages through a user's orders, newest first. An empty status
// or "all" lists every status.
func (s *OrderService) ListOrders(ctx context.Context, userID, status string, page, limit int) (*OrderPage, error) {
	if userID == "" {
		return nil, domain.Validation("User ID is required")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var filter domain.OrderStatus
	if status != "" && !strings.EqualFold(status, "all") {
		filter = domain.OrderStatus(strings.ToUpper(status))
		if !filter.Valid() {
			return nil, domain.Validation("Invalid status")
		}
	}

	orders, total, err := s.orders.ListOrders(ctx, userID, filter, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	return &OrderPage{Orders: orders, Pagination: NewPagination(page, limit, total)}, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID, userID string) (*OrderDetail, error) {
	order, err := s.orders.GetOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	revisions, err := s.orders.ListRevisions(ctx, orderID)
	if err != nil {
		return nil, err
	}
	comms, err := s.orders.ListCommunications(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderDetail{Order: order, Revisions: revisions, Communications: comms}, nil
}

// UpdateOrderStatus is the admin path. Cancelling refunds like CancelOrder;
// a cancelled order is never reopened.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID string, update StatusUpdate) (*domain.Order, error) {
	update.Status = domain.OrderStatus(strings.ToUpper(string(update.Status)))
	if !update.Status.Valid() {
		return nil, domain.Validation("Status is required")
	}
	if update.Progress != nil && (*update.Progress < 0 || *update.Progress > 100) {
		return nil, domain.Validation("Progress must be between 0 and 100")
	}

	if update.Status == domain.OrderCancelled {
		order, err := s.orders.GetOrder(ctx, orderID, "")
		if err != nil {
			return nil, err
		}
		return s.CancelOrder(ctx, orderID, order.UserID)
	}

	message := update.Message
	if message == "" {
		message = fmt.Sprintf("Your project status has been updated to: %s", update.Status)
	}
	return s.applyAdminUpdate(ctx, orderID, update, MessageProgressUpdate, "Project Status Update", message)
}

func (s *OrderService) CompleteOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID, "")
	if err != nil {
		return nil, err
	}
	progress := 100
	message := fmt.Sprintf("Congratulations! Your project %q has been completed and is ready for delivery. "+
		"Please review the deliverables and let us know if you need any adjustments.", order.Title)
	return s.applyAdminUpdate(ctx, orderID, StatusUpdate{Status: domain.OrderCompleted, Progress: &progress},
		MessageDelivery, "Project Completed!", message)
}

func (s *OrderService) SendMessage(ctx context.Context, orderID, messageType, subject, message string) (*domain.OrderCommunication, error) {
	if message == "" {
		return nil, domain.Validation("Message is required")
	}
	if messageType == "" {
		messageType = MessageGeneral
	}
	order, err := s.orders.GetOrder(ctx, orderID, "")
	if err != nil {
		return nil, err
	}
	comm := &domain.OrderCommunication{
		ID:          utils.GenerateID("comm"),
		OrderID:     orderID,
		UserID:      order.UserID,
		MessageType: messageType,
		Subject:     subject,
		Message:     message,
		IsFromAdmin: true,
	}
	if err := s.orders.CreateCommunication(ctx, comm); err != nil {
		return nil, err
	}
	return comm, nil
}

func (s *OrderService) applyAdminUpdate(ctx context.Context, orderID string, update StatusUpdate, messageType, subject, message string) (*domain.Order, error) {
	var order *domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.orders.TransitionStatus(ctx, orderID, transitionSources(update.Status), update.Status)
		if err != nil {
			return err
		}
		if !ok {
			current, err := s.orders.GetOrder(ctx, orderID, "")
			if err != nil {
				return err
			}
			if current.Status == domain.OrderCancelled {
				return domain.InvalidState("Cancelled orders cannot be reopened")
			}
			return domain.InvalidState("Completed orders cannot be reopened")
		}

		if update.Progress != nil || update.Milestone != nil {
			if err := s.orders.UpdateProgress(ctx, orderID, update.Status, update.Progress, update.Milestone); err != nil {
				return err
			}
		}

		order, err = s.orders.GetOrder(ctx, orderID, "")
		if err != nil {
			return err
		}
		return s.orders.CreateCommunication(ctx, &domain.OrderCommunication{
			ID:          utils.GenerateID("comm"),
			OrderID:     orderID,
			UserID:      order.UserID,
			MessageType: messageType,
			Subject:     subject,
			Message:     message,
			IsFromAdmin: true,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Order updated", "order_id", orderID, "status", string(update.Status))
	return order, nil
}

func openOrderStatuses() []domain.OrderStatus {
	return []domain.OrderStatus{domain.OrderPending, domain.OrderApproved,
		domain.OrderInProgress, domain.OrderRevisionRequested}
}

// transitionSources lists the statuses an order may leave for target.
// Completed and delivered orders only move between each other, so they
// never regain a cancellable status.
func transitionSources(target domain.OrderStatus) []domain.OrderStatus {
	if target == domain.OrderCompleted || target == domain.OrderDelivered {
		return append(openOrderStatuses(), domain.OrderCompleted, domain.OrderDelivered)
	}
	return openOrderStatuses()
}
