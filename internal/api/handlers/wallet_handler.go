package handlers

import (
	"net/http"
	"strings"

	"ece-marketplace/internal/domain"
	"ece-marketplace/internal/services"
	"ece-marketplace/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type WalletHandler struct {
	ledger *services.LedgerService
	log    logger.Logger
}

type TransactionRequest struct {
	UserID             string              `json:"userId"`
	Type               string              `json:"type"`
	Amount             decimal.NullDecimal `json:"amount"`
	Currency           string              `json:"currency"`
	CounterpartyUserID string              `json:"counterpartyUserId"`
	CardID             string              `json:"cardId"`
	Description        string              `json:"description"`
	PaymentMethod      string              `json:"paymentMethod"`
	PaymentID          string              `json:"paymentId"`
}

type UpdateTransactionRequest struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	UserID        string `json:"userId"`
}

func NewWalletHandler(ledger *services.LedgerService, log logger.Logger) *WalletHandler {
	return &WalletHandler{ledger: ledger, log: log}
}

// GetWallet serves GET /wallet?userId=&type=&page=&limit=.
func (h *WalletHandler) GetWallet(c echo.Context) error {
	userID := c.QueryParam("userId")
	if userID == "" {
		return fail(c, h.log, domain.Validation("User ID is required"), "")
	}

	var txType domain.TransactionType
	if raw := c.QueryParam("type"); raw != "" && !strings.EqualFold(raw, "all") {
		t, err := services.ParseTransactionType(raw)
		if err != nil {
			return fail(c, h.log, err, "")
		}
		txType = t
	}

	wallet, err := h.ledger.GetWallet(c.Request().Context(), userID, txType,
		queryInt(c, "page", 1), queryInt(c, "limit", 20))
	if err != nil {
		return fail(c, h.log, err, "Failed to fetch wallet data")
	}
	return respond(c, http.StatusOK, wallet, "")
}

func (h *WalletHandler) CreateTransaction(c echo.Context) error {
	var req TransactionRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.log, domain.Validation("Invalid request body"), "")
	}
	if req.UserID == "" || req.Type == "" || !req.Amount.Valid || req.Amount.Decimal.IsZero() {
		return fail(c, h.log, domain.Validation("Missing required fields: userId, type, amount"), "")
	}
	txType, err := services.ParseTransactionType(req.Type)
	if err != nil {
		return fail(c, h.log, err, "")
	}

	tx, err := h.ledger.ProcessTransaction(c.Request().Context(), services.TransactionRequest{
		UserID:             req.UserID,
		CounterpartyUserID: req.CounterpartyUserID,
		CardID:             req.CardID,
		Type:               txType,
		Amount:             req.Amount.Decimal,
		Currency:           req.Currency,
		Description:        req.Description,
		PaymentMethod:      req.PaymentMethod,
		PaymentID:          req.PaymentID,
	})
	if err != nil {
		return fail(c, h.log, err, "Failed to process transaction")
	}
	return respond(c, http.StatusCreated, tx, "Transaction processed successfully")
}

func (h *WalletHandler) UpdateTransaction(c echo.Context) error {
	var req UpdateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.log, domain.Validation("Invalid request body"), "")
	}

	tx, err := h.ledger.UpdateTransactionStatus(c.Request().Context(), req.TransactionID, req.UserID,
		domain.TransactionStatus(req.Status))
	if err != nil {
		return fail(c, h.log, err, "Failed to update transaction")
	}
	return respond(c, http.StatusOK, tx, "Transaction updated successfully")
}
