package services

import (
	"errors"
	"testing"

	"ece-marketplace/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositAndWithdraw(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "0")

	tx, err := f.ledger.Deposit(f.ctx, "alice", dec("100"))
	require.NoError(t, err)
	assert.Equal(t, domain.TxCompleted, tx.Status)
	assert.Equal(t, domain.Currency, tx.Currency)
	requireDecimal(t, "100", f.balance(t, "alice"))

	_, err = f.ledger.Withdraw(f.ctx, "alice", dec("30"))
	require.NoError(t, err)
	requireDecimal(t, "70", f.balance(t, "alice"))
}

func TestWithdrawNeverOverdraws(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "50")

	_, err := f.ledger.Withdraw(f.ctx, "alice", dec("50.01"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientBalance))
	assert.Equal(t, "Insufficient balance", err.Error())
	requireDecimal(t, "50", f.balance(t, "alice"))

	wallet, err := f.ledger.GetWallet(f.ctx, "alice", "", 1, 20)
	require.NoError(t, err)
	assert.Empty(t, wallet.Transactions, "a rejected transaction leaves no record")
}

func TestShortBalanceMessageIsKeptVerbatim(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "5")

	err := f.ledger.debit(f.ctx, "alice", dec("10"), "Balance covers 50% of the price")
	assert.True(t, errors.Is(err, domain.ErrInsufficientBalance))
	assert.EqualError(t, err, "Balance covers 50% of the price")
	requireDecimal(t, "5", f.balance(t, "alice"))
}

func TestPurchaseMovesFundsToCounterparty(t *testing.T) {
	f := newFixture(t)
	f.user(t, "buyer", "200")
	f.user(t, "seller", "0")

	_, err := f.ledger.Purchase(f.ctx, "buyer", "seller", dec("75"))
	require.NoError(t, err)
	requireDecimal(t, "125", f.balance(t, "buyer"))
	requireDecimal(t, "75", f.balance(t, "seller"))
}

func TestSaleRollsBackWhenCounterpartyIsShort(t *testing.T) {
	f := newFixture(t)
	f.user(t, "seller", "10")
	f.user(t, "buyer", "5")

	_, err := f.ledger.Sale(f.ctx, "seller", "buyer", dec("20"))
	require.Error(t, err)
	assert.Equal(t, "Counterparty has insufficient balance", err.Error())

	// the seller's credit was part of the same transaction
	requireDecimal(t, "10", f.balance(t, "seller"))
	requireDecimal(t, "5", f.balance(t, "buyer"))
}

func TestProcessTransactionValidation(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "100")

	tests := []struct {
		name string
		req  TransactionRequest
		msg  string
	}{
		{"missing type", TransactionRequest{UserID: "alice", Amount: dec("1")}, "Missing required fields: userId, type, amount"},
		{"unknown type", TransactionRequest{UserID: "alice", Type: "GIFT", Amount: dec("1")}, "Invalid transaction type"},
		{"zero amount", TransactionRequest{UserID: "alice", Type: domain.TxDeposit, Amount: dec("0")}, "Amount must be greater than 0"},
		{"self counterparty", TransactionRequest{UserID: "alice", CounterpartyUserID: "alice", Type: domain.TxTrade, Amount: dec("1")}, "Counterparty must differ from the user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.ProcessTransaction(f.ctx, tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))
			assert.Equal(t, tt.msg, err.Error())
		})
	}
	requireDecimal(t, "100", f.balance(t, "alice"))
}

func TestParseTransactionType(t *testing.T) {
	got, err := ParseTransactionType("deposit")
	require.NoError(t, err)
	assert.Equal(t, domain.TxDeposit, got)

	_, err = ParseTransactionType("gift")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestGetWalletPaginatesAndFilters(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "0")

	for i := 0; i < 3; i++ {
		_, err := f.ledger.Deposit(f.ctx, "alice", dec("10"))
		require.NoError(t, err)
	}
	_, err := f.ledger.Withdraw(f.ctx, "alice", dec("5"))
	require.NoError(t, err)

	wallet, err := f.ledger.GetWallet(f.ctx, "alice", "", 1, 2)
	require.NoError(t, err)
	requireDecimal(t, "25", wallet.Balance)
	assert.Len(t, wallet.Transactions, 2)
	assert.Equal(t, 4, wallet.TotalTransactions)
	assert.Equal(t, 2, wallet.Pagination.TotalPages)

	deposits, err := f.ledger.GetWallet(f.ctx, "alice", domain.TxDeposit, 1, 20)
	require.NoError(t, err)
	assert.Len(t, deposits.Transactions, 3)
	for _, tx := range deposits.Transactions {
		assert.Equal(t, domain.TxDeposit, tx.Type)
	}

	_, err = f.ledger.GetWallet(f.ctx, "nobody", "", 1, 20)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUpdateTransactionStatusIsScopedToOwner(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "0")
	tx, err := f.ledger.Deposit(f.ctx, "alice", dec("10"))
	require.NoError(t, err)

	_, err = f.ledger.UpdateTransactionStatus(f.ctx, tx.ID, "mallory", domain.TxRefunded)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, "Transaction not found or unauthorized", err.Error())

	updated, err := f.ledger.UpdateTransactionStatus(f.ctx, tx.ID, "alice", "refunded")
	require.NoError(t, err)
	assert.Equal(t, domain.TxRefunded, updated.Status)

	_, err = f.ledger.UpdateTransactionStatus(f.ctx, tx.ID, "alice", domain.TxPending)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}
