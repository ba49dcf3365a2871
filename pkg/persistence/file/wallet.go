package file

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
)

const walletKind = "wallets"

type walletDocument struct {
	UserID       string                `json:"user_id"`
	Balance      float64               `json:"balance"`
	Transactions []models.WalletCredit `json:"transactions"`
}

// WalletRepository handles wallet file operations. The store mutex makes the
// read-modify-write of Credit atomic, mirroring the SQL transaction of the
// postgres implementation.
type WalletRepository struct {
	store *Persistence
}

func (r *WalletRepository) Credit(_ context.Context, userID string, amount float64, note string) (*models.WalletCredit, error) {
	if amount <= 0 {
		return nil, persistence.ErrInvalidAmount
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	document, err := r.load(userID)
	if err != nil {
		return nil, err
	}

	credit := models.WalletCredit{
		UserID:        userID,
		Amount:        amount,
		BalanceBefore: document.Balance,
		BalanceAfter:  document.Balance + amount,
		Note:          note,
		CreatedAt:     time.Now().UTC(),
	}

	document.Balance = credit.BalanceAfter
	document.Transactions = append(document.Transactions, credit)

	if err := r.store.write(walletKind, userID, document); err != nil {
		return nil, err
	}

	return &credit, nil
}

func (r *WalletRepository) Balance(_ context.Context, userID string) (float64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	document, err := r.load(userID)
	if err != nil {
		return 0, err
	}

	return document.Balance, nil
}

// load returns the user's wallet document, creating an empty one in memory
// for users that never held a balance.
func (r *WalletRepository) load(userID string) (*walletDocument, error) {
	var document walletDocument

	err := r.store.read(walletKind, userID, &document, fs.ErrNotExist)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &walletDocument{UserID: userID}, nil
		}

		return nil, err
	}

	return &document, nil
}
