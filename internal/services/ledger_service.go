package services

import (
	"context"
	"errors"
	"strings"

	"ece-marketplace/internal/domain"
	"ece-marketplace/pkg/logger"
	"ece-marketplace/pkg/utils"

	"github.com/shopspring/decimal"
)

type TransactionRequest struct {
	UserID             string
	CounterpartyUserID string
	CardID             string
	Type               domain.TransactionType
	Amount             decimal.Decimal
	Currency           string
	Description        string
	PaymentMethod      string
	PaymentID          string
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

type Wallet struct {
	Balance           decimal.Decimal       `json:"balance"`
	Currency          string                `json:"currency"`
	Transactions      []*domain.Transaction `json:"transactions"`
	TotalTransactions int                   `json:"totalTransactions"`
	Pagination        Pagination            `json:"pagination"`
}

// LedgerService moves ECE between users. Every balance change and its
// transaction row commit together.
type LedgerService struct {
	tx    domain.Transactor
	users domain.UserRepository
	txs   domain.TransactionRepository
	log   logger.Logger
}

func NewLedgerService(tx domain.Transactor, users domain.UserRepository, txs domain.TransactionRepository, log logger.Logger) *LedgerService {
	return &LedgerService{tx: tx, users: users, txs: txs, log: log}
}

func ParseTransactionType(raw string) (domain.TransactionType, error) {
	t := domain.TransactionType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", domain.Validation("Invalid transaction type")
	}
	return t, nil
}

func (s *LedgerService) GetWallet(ctx context.Context, userID string, txType domain.TransactionType, page, limit int) (*Wallet, error) {
	if userID == "" {
		return nil, domain.Validation("User ID is required")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	txs, total, err := s.txs.ListTransactions(ctx, domain.TransactionFilter{
		UserID: userID,
		Type:   txType,
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []*domain.Transaction{}
	}

	return &Wallet{
		Balance:           user.Balance,
		Currency:          domain.Currency,
		Transactions:      txs,
		TotalTransactions: total,
		Pagination:        NewPagination(page, limit, total),
	}, nil
}

func (s *LedgerService) ProcessTransaction(ctx context.Context, req TransactionRequest) (*domain.Transaction, error) {
	if req.UserID == "" || req.Type == "" {
		return nil, domain.Validation("Missing required fields: userId, type, amount")
	}
	if !req.Type.Valid() {
		return nil, domain.Validation("Invalid transaction type")
	}
	if !req.Amount.IsPositive() {
		return nil, domain.Validation("Amount must be greater than 0")
	}
	if req.CounterpartyUserID == req.UserID {
		return nil, domain.Validation("Counterparty must differ from the user")
	}
	if req.Currency == "" {
		req.Currency = domain.Currency
	}

	record := &domain.Transaction{
		ID:                 utils.GenerateID("tx"),
		UserID:             req.UserID,
		CounterpartyUserID: req.CounterpartyUserID,
		CardID:             req.CardID,
		Amount:             req.Amount,
		Currency:           req.Currency,
		Type:               req.Type,
		Status:             domain.TxCompleted,
		Description:        req.Description,
		PaymentMethod:      req.PaymentMethod,
		PaymentID:          req.PaymentID,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.apply(ctx, req); err != nil {
			return err
		}
		return s.txs.CreateTransaction(ctx, record)
	})
	if err != nil {
		s.log.Warn("Transaction rejected", "user_id", req.UserID, "type", string(req.Type),
			"amount", req.Amount.String(), "error", err)
		return nil, err
	}

	s.log.Info("Transaction processed", "transaction_id", record.ID, "user_id", req.UserID,
		"type", string(req.Type), "amount", req.Amount.String())
	return record, nil
}

func (s *LedgerService) apply(ctx context.Context, req TransactionRequest) error {
	switch req.Type {
	case domain.TxDeposit, domain.TxReward, domain.TxRefund:
		return s.users.Credit(ctx, req.UserID, req.Amount)

	case domain.TxWithdrawal:
		return s.debit(ctx, req.UserID, req.Amount, "Insufficient balance")

	case domain.TxPurchase, domain.TxTrade:
		if err := s.debit(ctx, req.UserID, req.Amount, "Insufficient balance"); err != nil {
			return err
		}
		if req.CounterpartyUserID != "" {
			return s.users.Credit(ctx, req.CounterpartyUserID, req.Amount)
		}
		return nil

	case domain.TxSale:
		if err := s.users.Credit(ctx, req.UserID, req.Amount); err != nil {
			return err
		}
		if req.CounterpartyUserID == "" {
			return nil
		}
		return s.debit(ctx, req.CounterpartyUserID, req.Amount, "Counterparty has insufficient balance")
	}
	return domain.Validation("Invalid transaction type")
}

// debit reports a short balance with message.
func (s *LedgerService) debit(ctx context.Context, userID string, amount decimal.Decimal, message string) error {
	err := s.users.Debit(ctx, userID, amount)
	if errors.Is(err, domain.ErrInsufficientBalance) {
		return domain.InsufficientBalance("%s", message)
	}
	return err
}

func (s *LedgerService) Deposit(ctx context.Context, userID string, amount decimal.Decimal) (*domain.Transaction, error) {
	return s.ProcessTransaction(ctx, TransactionRequest{UserID: userID, Type: domain.TxDeposit, Amount: amount})
}

func (s *LedgerService) Withdraw(ctx context.Context, userID string, amount decimal.Decimal) (*domain.Transaction, error) {
	return s.ProcessTransaction(ctx, TransactionRequest{UserID: userID, Type: domain.TxWithdrawal, Amount: amount})
}

func (s *LedgerService) Purchase(ctx context.Context, userID, counterpartyID string, amount decimal.Decimal) (*domain.Transaction, error) {
	return s.ProcessTransaction(ctx, TransactionRequest{UserID: userID, CounterpartyUserID: counterpartyID, Type: domain.TxPurchase, Amount: amount})
}

func (s *LedgerService) Trade(ctx context.Context, userID, counterpartyID string, amount decimal.Decimal) (*domain.Transaction, error) {
	return s.ProcessTransaction(ctx, TransactionRequest{UserID: userID, CounterpartyUserID: counterpartyID, Type: domain.TxTrade, Amount: amount})
}

func (s *LedgerService) Sale(ctx context.Context, userID, counterpartyID string, amount decimal.Decimal) (*domain.Transaction, error) {
	return s.ProcessTransaction(ctx, TransactionRequest{UserID: userID, CounterpartyUserID: counterpartyID, Type: domain.TxSale, Amount: amount})
}

func (s *LedgerService) UpdateTransactionStatus(ctx context.Context, transactionID, userID string, status domain.TransactionStatus) (*domain.Transaction, error) {
	if transactionID == "" || userID == "" || status == "" {
		return nil, domain.Validation("Missing required fields: transactionId, status, userId")
	}
	status = domain.TransactionStatus(strings.ToUpper(string(status)))
	switch status {
	case domain.TxCompleted, domain.TxFailed, domain.TxCanceled, domain.TxRefunded:
	default:
		return nil, domain.Validation("Invalid status")
	}

	tx, err := s.txs.UpdateStatus(ctx, transactionID, userID, status)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("Transaction not found or unauthorized")
		}
		return nil, err
	}
	return tx, nil
}

func (s *LedgerService) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return user.Balance, nil
}
