package backend

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/vintech/portal/core/fees"
)

// The table was created singular and renaming it would orphan the data.
const transactionTable = "transaction"

// TransactionRepo reads and writes fee transactions.
type TransactionRepo struct {
	client *Client
}

var _ fees.Repository = (*TransactionRepo)(nil)

func NewTransactionRepo(client *Client) *TransactionRepo {
	return &TransactionRepo{client: client}
}

// QueryTransactions lists one page, newest first. The month filter matches
// the MM segment of the textual paid_on date and the year filter its suffix;
// both lean on the fixed DD/MM/YYYY layout.
func (repo *TransactionRepo) QueryTransactions(ctx context.Context, f fees.TxnFilter) ([]fees.Transaction, error) {
	q := Query{
		Table:  transactionTable,
		Order:  "id.desc",
		Limit:  fees.TxnPageLimit,
		Offset: f.Page * fees.TxnPageLimit,
	}
	if f.Prefix != "" {
		q.Filters = append(q.Filters, ILike("roll_no", f.Prefix+"%"))
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q.Filters = append(q.Filters, Or(
			"student_name.ilike."+pattern,
			"receipt_no.ilike."+pattern,
			"roll_no.ilike."+pattern,
		))
	}
	if f.Month >= 1 && f.Month <= 12 {
		q.Filters = append(q.Filters, ILike("paid_on", fmt.Sprintf("__/%02d/%%", f.Month)))
	}
	if f.Year > 0 {
		q.Filters = append(q.Filters, Like("paid_on", "%/"+strconv.Itoa(f.Year)))
	}

	var txns []fees.Transaction
	err := repo.client.QueryRows(ctx, q, &txns)
	return txns, err
}

func (repo *TransactionRepo) QueryTransactionsByRoll(ctx context.Context, roll string, page int) ([]fees.Transaction, error) {
	var txns []fees.Transaction
	err := repo.client.QueryRows(ctx, Query{
		Table:   transactionTable,
		Filters: []Filter{Eq("roll_no", roll)},
		Order:   "id.desc",
		Limit:   fees.HistoryPageLimit,
		Offset:  page * fees.HistoryPageLimit,
	}, &txns)
	return txns, err
}

func (repo *TransactionRepo) GetTransaction(ctx context.Context, id int64) (fees.Transaction, error) {
	var txn fees.Transaction
	err := repo.client.GetRow(ctx, Query{
		Table:   transactionTable,
		Filters: []Filter{Eq("id", strconv.FormatInt(id, 10))},
	}, &txn)
	if errors.Cause(err) == ErrNoRow {
		return fees.Transaction{}, fees.ErrNotFound
	}
	return txn, err
}

func (repo *TransactionRepo) CreateTransaction(ctx context.Context, txn fees.Transaction) (fees.Transaction, error) {
	type insertRow struct {
		RollNo      string  `json:"roll_no"`
		StudentName string  `json:"student_name"`
		FatherName  string  `json:"father_name"`
		AmountPaid  float64 `json:"amount_paid"`
		ReceiptNo   string  `json:"receipt_no"`
		PaidOn      string  `json:"paid_on"`
	}
	var created []fees.Transaction
	err := repo.client.InsertRows(ctx, transactionTable, []insertRow{{
		RollNo:      txn.RollNo,
		StudentName: txn.StudentName,
		FatherName:  txn.FatherName,
		AmountPaid:  txn.AmountPaid,
		ReceiptNo:   txn.ReceiptNo,
		PaidOn:      txn.PaidOn,
	}}, &created)
	if err != nil {
		return fees.Transaction{}, err
	}
	if len(created) == 0 {
		return fees.Transaction{}, errors.New("backend returned no inserted transaction")
	}
	return created[0], nil
}

func (repo *TransactionRepo) UpdateTransaction(ctx context.Context, id int64, patch fees.UpdateTransaction) (fees.Transaction, error) {
	var txn fees.Transaction
	err := repo.client.UpdateRow(ctx, transactionTable, []Filter{Eq("id", strconv.FormatInt(id, 10))}, patch, &txn)
	if errors.Cause(err) == ErrNoRow {
		return fees.Transaction{}, fees.ErrNotFound
	}
	return txn, err
}

func (repo *TransactionRepo) DeleteTransaction(ctx context.Context, id int64) error {
	err := repo.client.DeleteRow(ctx, transactionTable, []Filter{Eq("id", strconv.FormatInt(id, 10))})
	if errors.Cause(err) == ErrNoRow {
		return fees.ErrNotFound
	}
	return err
}
