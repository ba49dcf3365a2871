package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
)

// WalletRepository maintains per-user wallet balances and their transaction
// history. Credit runs balance write and history insert in a single
// transaction so the ledger never drifts from the balance.
type WalletRepository struct {
	db *sql.DB
}

func (r *WalletRepository) Credit(ctx context.Context, userID string, amount float64, note string) (*models.WalletCredit, error) {
	if amount <= 0 {
		return nil, persistence.ErrInvalidAmount
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin wallet transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	// Additive upsert: the balance is adjusted relative to the committed
	// row, never overwritten with a value computed from an earlier read.
	// Concurrent credits, including the first two for a user with no
	// wallet row yet, serialize on the row lock and both land.
	var after float64

	err = tx.QueryRowContext(ctx, `
		INSERT INTO wallets (user_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET balance = wallets.balance + EXCLUDED.balance
		RETURNING balance
	`, userID, amount).Scan(&after)
	if err != nil {
		return nil, fmt.Errorf("failed to update wallet balance: %w", err)
	}

	before := after - amount

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate transaction ID: %w", err)
	}

	credit := &models.WalletCredit{
		UserID:        userID,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Note:          note,
		CreatedAt:     time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (id, user_id, amount, balance_before, balance_after, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id.String(), userID, amount, before, after, note, credit.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record wallet transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit wallet transaction: %w", err)
	}

	return credit, nil
}

func (r *WalletRepository) Balance(ctx context.Context, userID string) (float64, error) {
	var balance float64

	err := r.db.QueryRowContext(ctx,
		"SELECT balance FROM wallets WHERE user_id = $1", userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}

		return 0, fmt.Errorf("failed to read wallet balance: %w", err)
	}

	return balance, nil
}
