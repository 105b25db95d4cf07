package inmem

import (
	"context"
	"fmt"
	"strings"

	"github.com/vintech/portal/core/branch"
	"github.com/vintech/portal/core/fees"
)

type TransactionRepo struct {
	db     *DB
	rows   []fees.Transaction
	nextID int64
}

var _ fees.Repository = (*TransactionRepo)(nil)

func (repo *TransactionRepo) QueryTransactions(_ context.Context, f fees.TxnFilter) ([]fees.Transaction, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var matched []fees.Transaction
	// newest first
	for i := len(repo.rows) - 1; i >= 0; i-- {
		if txnMatches(repo.rows[i], f) {
			matched = append(matched, repo.rows[i])
		}
	}
	return page(matched, f.Page, fees.TxnPageLimit), nil
}

func txnMatches(txn fees.Transaction, f fees.TxnFilter) bool {
	if !branch.Matches(f.Prefix, txn.RollNo) {
		return false
	}
	if f.Search != "" {
		s := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(txn.StudentName), s) &&
			!strings.Contains(strings.ToLower(txn.ReceiptNo), s) &&
			!strings.Contains(strings.ToLower(txn.RollNo), s) {
			return false
		}
	}
	// paid_on is DD/MM/YYYY text; slice it the way the backend's pattern
	// filters do
	if f.Month >= 1 && f.Month <= 12 {
		if len(txn.PaidOn) < 5 || txn.PaidOn[3:5] != fmt.Sprintf("%02d", f.Month) {
			return false
		}
	}
	if f.Year > 0 && !strings.HasSuffix(txn.PaidOn, fmt.Sprintf("/%d", f.Year)) {
		return false
	}
	return true
}

func page(txns []fees.Transaction, pageNum, limit int) []fees.Transaction {
	from := pageNum * limit
	if from >= len(txns) {
		return []fees.Transaction{}
	}
	to := from + limit
	if to > len(txns) {
		to = len(txns)
	}
	return txns[from:to]
}

func (repo *TransactionRepo) QueryTransactionsByRoll(_ context.Context, roll string, pageNum int) ([]fees.Transaction, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var matched []fees.Transaction
	for i := len(repo.rows) - 1; i >= 0; i-- {
		if repo.rows[i].RollNo == roll {
			matched = append(matched, repo.rows[i])
		}
	}
	return page(matched, pageNum, fees.HistoryPageLimit), nil
}

func (repo *TransactionRepo) GetTransaction(_ context.Context, id int64) (fees.Transaction, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for _, txn := range repo.rows {
		if txn.ID == id {
			return txn, nil
		}
	}
	return fees.Transaction{}, fees.ErrNotFound
}

func (repo *TransactionRepo) CreateTransaction(_ context.Context, txn fees.Transaction) (fees.Transaction, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.nextID++
	txn.ID = repo.nextID
	repo.rows = append(repo.rows, txn)
	return txn, nil
}

func (repo *TransactionRepo) UpdateTransaction(_ context.Context, id int64, patch fees.UpdateTransaction) (fees.Transaction, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for i, txn := range repo.rows {
		if txn.ID != id {
			continue
		}
		if patch.RollNo != "" {
			txn.RollNo = patch.RollNo
		}
		if patch.StudentName != "" {
			txn.StudentName = patch.StudentName
		}
		if patch.FatherName != "" {
			txn.FatherName = patch.FatherName
		}
		if patch.AmountPaid != nil {
			txn.AmountPaid = *patch.AmountPaid
		}
		if patch.ReceiptNo != "" {
			txn.ReceiptNo = patch.ReceiptNo
		}
		if patch.PaidOn != "" {
			txn.PaidOn = patch.PaidOn
		}
		repo.rows[i] = txn
		return txn, nil
	}
	return fees.Transaction{}, fees.ErrNotFound
}

func (repo *TransactionRepo) DeleteTransaction(_ context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for i, txn := range repo.rows {
		if txn.ID == id {
			repo.rows = append(repo.rows[:i], repo.rows[i+1:]...)
			return nil
		}
	}
	return fees.ErrNotFound
}
