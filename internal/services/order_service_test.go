package services

import (
	"errors"
	"testing"

	"ece-marketplace/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteOrder(t *testing.T) {
	tests := []struct {
		projectType string
		timeline    string
		want        string
	}{
		{"SAAS_DASHBOARD", TimelineRush, "9600"},
		{"LANDING_PAGE", TimelineStandard, "2400"},
		{"CUSTOM", TimelineStandard, "6000"},
		{"PORTFOLIO_SITE", TimelineRush, "6400"},
	}
	for _, tt := range tests {
		t.Run(tt.projectType+"/"+tt.timeline, func(t *testing.T) {
			got, err := QuoteOrder(tt.projectType, tt.timeline)
			require.NoError(t, err)
			requireDecimal(t, tt.want, got)
		})
	}

	_, err := QuoteOrder("SPACESHIP", TimelineRush)
	assert.EqualError(t, err, "Invalid project type")
	_, err = QuoteOrder("CUSTOM", "YESTERDAY")
	assert.EqualError(t, err, "Invalid timeline")
}

func newOrderRequest(userID string) OrderRequest {
	return OrderRequest{
		UserID:       userID,
		ProjectType:  "LANDING_PAGE",
		Title:        "Launch page",
		Description:  "One page for the spring drop",
		Timeline:     TimelineStandard,
		Requirements: map[string]string{"stack": "static"},
	}
}

func TestCreateOrderEscrowsCost(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "3000")

	order, err := f.orders.CreateOrder(f.ctx, newOrderRequest("alice"))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, order.Status)
	requireDecimal(t, "2400", order.EstimatedCost)
	requireDecimal(t, "600", f.balance(t, "alice"))

	detail, err := f.orders.GetOrder(f.ctx, order.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "static", detail.Requirements["stack"])
	require.Len(t, detail.Communications, 1)
	assert.Equal(t, MessageSystemAlert, detail.Communications[0].MessageType)
}

func TestCreateOrderRejectsShortBalance(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "100")

	_, err := f.orders.CreateOrder(f.ctx, newOrderRequest("alice"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientBalance))
	assert.Equal(t, "Insufficient ECE balance. Required: 2400 ECE, Available: 100 ECE", err.Error())
	requireDecimal(t, "100", f.balance(t, "alice"))

	page, err := f.orders.ListOrders(f.ctx, "alice", "", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Orders)

	_, err = f.orders.CreateOrder(f.ctx, newOrderRequest("ghost"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCancelOrderRefundsOnce(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "3000")
	order, err := f.orders.CreateOrder(f.ctx, newOrderRequest("alice"))
	require.NoError(t, err)

	cancelled, err := f.orders.CancelOrder(f.ctx, order.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, cancelled.Status)
	requireDecimal(t, "3000", f.balance(t, "alice"))

	_, err = f.orders.CancelOrder(f.ctx, order.ID, "alice")
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
	requireDecimal(t, "3000", f.balance(t, "alice"))
}

func TestCancelOrderInProgressKeepsBalance(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "3000")
	order, err := f.orders.CreateOrder(f.ctx, newOrderRequest("alice"))
	require.NoError(t, err)

	_, err = f.orders.UpdateOrderStatus(f.ctx, order.ID, StatusUpdate{Status: domain.OrderInProgress})
	require.NoError(t, err)

	_, err = f.orders.CancelOrder(f.ctx, order.ID, "alice")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
	assert.Equal(t, "Order cannot be cancelled at this stage", err.Error())
	requireDecimal(t, "600", f.balance(t, "alice"))
}

func TestCancelOrderOfAnotherUser(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "3000")
	order, err := f.orders.CreateOrder(f.ctx, newOrderRequest("alice"))
	require.NoError(t, err)

	_, err = f.orders.CancelOrder(f.ctx, order.ID, "mallory")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	requireDecimal(t, "600", f.balance(t, "alice"))
}

func TestRequestRevisionNumbersSequentially(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "3000")
	order, err := f.orders.CreateOrder(f.ctx, newOrderRequest("alice"))
	require.NoError(t, err)

	first, err := f.orders.RequestRevision(f.ctx, order.ID, "alice", RevisionRequest{Title: "Colors", Description: "Darker"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Revision.RevisionNumber)
	assert.Equal(t, domain.OrderRevisionRequested, first.Order.Status)

	second, err := f.orders.RequestRevision(f.ctx, order.ID, "alice", RevisionRequest{Title: "Copy", Description: "Shorter"})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Revision.RevisionNumber)

	_, err = f.orders.RequestRevision(f.ctx, order.ID, "alice", RevisionRequest{Title: "Empty"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = f.orders.CompleteOrder(f.ctx, order.ID)
	require.NoError(t, err)
	_, err = f.orders.RequestRevision(f.ctx, order.ID, "alice", RevisionRequest{Title: "Late", Description: "Too late"})
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestAdminStatusUpdates(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "5000")
	order, err := f.orders.CreateOrder(f.ctx, newOrderRequest("alice"))
	require.NoError(t, err)

	progress := 40
	milestone := "Wireframes"
	updated, err := f.orders.UpdateOrderStatus(f.ctx, order.ID, StatusUpdate{
		Status:    "in_progress",
		Progress:  &progress,
		Milestone: &milestone,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderInProgress, updated.Status)
	assert.Equal(t, 40, updated.ProgressPercentage)
	assert.Equal(t, "Wireframes", updated.CurrentMilestone)

	bad := 140
	_, err = f.orders.UpdateOrderStatus(f.ctx, order.ID, StatusUpdate{Status: domain.OrderInProgress, Progress: &bad})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	completed, err := f.orders.CompleteOrder(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, completed.Status)
	assert.Equal(t, 100, completed.ProgressPercentage)

	detail, err := f.orders.GetOrder(f.ctx, order.ID, "")
	require.NoError(t, err)
	last := detail.Communications[len(detail.Communications)-1]
	assert.Equal(t, MessageDelivery, last.MessageType)
	assert.True(t, last.IsFromAdmin)

	// completed work is no longer refundable
	_, err = f.orders.UpdateOrderStatus(f.ctx, order.ID, StatusUpdate{Status: domain.OrderCancelled})
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestAdminCancelRefundsAndCannotReopen(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "3000")
	order, err := f.orders.CreateOrder(f.ctx, newOrderRequest("alice"))
	require.NoError(t, err)

	cancelled, err := f.orders.UpdateOrderStatus(f.ctx, order.ID, StatusUpdate{Status: domain.OrderCancelled})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, cancelled.Status)
	requireDecimal(t, "3000", f.balance(t, "alice"))

	_, err = f.orders.UpdateOrderStatus(f.ctx, order.ID, StatusUpdate{Status: domain.OrderInProgress})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestCompletedOrderCannotBeReopenedForRefund(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "5000")
	order, err := f.orders.CreateOrder(f.ctx, newOrderRequest("alice"))
	require.NoError(t, err)
	_, err = f.orders.CompleteOrder(f.ctx, order.ID)
	require.NoError(t, err)
	paid := f.balance(t, "alice")

	for _, status := range []domain.OrderStatus{domain.OrderPending, domain.OrderApproved, domain.OrderInProgress} {
		_, err = f.orders.UpdateOrderStatus(f.ctx, order.ID, StatusUpdate{Status: status})
		require.Error(t, err, status)
		assert.True(t, errors.Is(err, domain.ErrInvalidState), "got %v", err)
		assert.EqualError(t, err, "Completed orders cannot be reopened")
	}

	_, err = f.orders.CancelOrder(f.ctx, order.ID, "alice")
	assert.True(t, errors.Is(err, domain.ErrInvalidState), "got %v", err)
	requireDecimal(t, paid.String(), f.balance(t, "alice"))

	// delivery still follows completion
	delivered, err := f.orders.UpdateOrderStatus(f.ctx, order.ID, StatusUpdate{Status: domain.OrderDelivered})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderDelivered, delivered.Status)

	_, err = f.orders.UpdateOrderStatus(f.ctx, order.ID, StatusUpdate{Status: domain.OrderPending})
	assert.True(t, errors.Is(err, domain.ErrInvalidState), "got %v", err)
	requireDecimal(t, paid.String(), f.balance(t, "alice"))
}

func TestListOrdersFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "10000")

	first, err := f.orders.CreateOrder(f.ctx, newOrderRequest("alice"))
	require.NoError(t, err)
	_, err = f.orders.CreateOrder(f.ctx, newOrderRequest("alice"))
	require.NoError(t, err)
	_, err = f.orders.CancelOrder(f.ctx, first.ID, "alice")
	require.NoError(t, err)

	all, err := f.orders.ListOrders(f.ctx, "alice", "all", 1, 10)
	require.NoError(t, err)
	assert.Len(t, all.Orders, 2)
	assert.Equal(t, 2, all.Pagination.Total)

	cancelled, err := f.orders.ListOrders(f.ctx, "alice", "cancelled", 1, 10)
	require.NoError(t, err)
	require.Len(t, cancelled.Orders, 1)
	assert.Equal(t, first.ID, cancelled.Orders[0].ID)

	_, err = f.orders.ListOrders(f.ctx, "alice", "LOST", 1, 10)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}
