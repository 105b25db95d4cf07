package fees

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/vintech/portal/core"
	"github.com/vintech/portal/core/branch"
	"github.com/vintech/portal/services/cache"
)

var ErrNotFound = errors.New("transaction not found")

// DefaultStatusBranch is the branch whose status is shown when an
// unrestricted caller does not pick one.
const DefaultStatusBranch = "main"

type (
	Repository interface {
		// QueryTransactions lists one page of transactions, newest first,
		// applying every part of the filter server-side.
		QueryTransactions(ctx context.Context, f TxnFilter) ([]Transaction, error)
		// QueryTransactionsByRoll lists one page of a single roll's
		// transactions, newest first, HistoryPageLimit rows per page.
		QueryTransactionsByRoll(ctx context.Context, roll string, page int) ([]Transaction, error)
		GetTransaction(ctx context.Context, id int64) (Transaction, error)
		CreateTransaction(ctx context.Context, txn Transaction) (Transaction, error)
		UpdateTransaction(ctx context.Context, id int64, patch UpdateTransaction) (Transaction, error)
		DeleteTransaction(ctx context.Context, id int64) error
	}

	// LegacyGateway is the spreadsheet-script side of the fee data: the
	// write-through snapshot, the pre-migration per-roll history, and the
	// bulk paid-up status computed over the sheet.
	LegacyGateway interface {
		WriteSnapshot(ctx context.Context, snap Snapshot) error
		FeeHistory(ctx context.Context, roll string) (LegacyHistory, error)
		BranchStatus(ctx context.Context, branchName string) ([]StatusRow, error)
	}

	// Aggregator exposes the backend's server-side aggregate procedures.
	Aggregator interface {
		MonthlyRevenue(ctx context.Context, year, month int) (float64, error)
		PendingFeesByBranch(ctx context.Context) (map[string]float64, error)
		CountActiveStudents(ctx context.Context) (int, error)
		CountBranches(ctx context.Context) (int, error)
		CountCourses(ctx context.Context) (int, error)
		CountOpenEnquiries(ctx context.Context) (int, error)
	}

	Service struct {
		repo   Repository
		legacy LegacyGateway
		agg    Aggregator
		status *cache.TTL[[]StatusRow]
		logger core.Logger

		now func() time.Time

		// syncWrites makes the legacy write-through synchronous. Tests only.
		syncWrites bool
	}
)

func NewService(repo Repository, legacy LegacyGateway, agg Aggregator, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:   repo,
		legacy: legacy,
		agg:    agg,
		status: cache.New[[]StatusRow](conf.StatusCacheTTL),
		logger: logger,
		now:    time.Now,

		syncWrites: conf.TestMode,
	}
}

// RecordPayment inserts a fee transaction and writes the denormalized
// snapshot through to the legacy sheet. The system of record is the
// transaction row; the snapshot write runs in the background and a failure
// there never fails the payment.
func (svc *Service) RecordPayment(ctx context.Context, scope branch.Scope, np NewPayment) (Transaction, error) {
	if !branch.Matches(scope.Prefix(), np.Roll) {
		return Transaction{}, core.NewValidationError(
			errors.New("roll number is outside your branch"),
			core.FieldError{Field: "roll", Error: "roll number is outside your branch"},
		)
	}

	paidOn, err := NormalizePaidOn(np.PaidOn, svc.now())
	if err != nil {
		return Transaction{}, core.NewValidationError(
			errors.New("invalid payment date"),
			core.FieldError{Field: "paid_on", Error: "invalid payment date"},
		)
	}

	txn, err := svc.repo.CreateTransaction(ctx, Transaction{
		RollNo:      np.Roll,
		StudentName: np.Student,
		FatherName:  np.Father,
		AmountPaid:  np.Amount,
		ReceiptNo:   np.Receipt,
		PaidOn:      paidOn,
	})
	if err != nil {
		return Transaction{}, errors.Wrap(err, "creating transaction")
	}

	// paid-up standing changed; drop cached status
	svc.status.Flush()

	snap := Snapshot{
		RollNumber:     txn.RollNo,
		StudentName:    txn.StudentName,
		FatherName:     txn.FatherName,
		LastAmountPaid: txn.AmountPaid,
		LastPaid:       txn.PaidOn,
	}
	if svc.syncWrites {
		svc.writeSnapshot(snap)
	} else {
		go svc.writeSnapshot(snap)
	}
	return txn, nil
}

func (svc *Service) writeSnapshot(snap Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := svc.legacy.WriteSnapshot(ctx, snap); err != nil {
		svc.logger.Error("legacy snapshot write failed", "roll", snap.RollNumber, "err", err)
	}
}

// Transactions lists one page of the scope's transactions, newest first.
func (svc *Service) Transactions(ctx context.Context, scope branch.Scope, f TxnFilter) ([]Transaction, error) {
	f.Prefix = scope.Prefix()
	if f.Page < 0 {
		f.Page = 0
	}
	return svc.repo.QueryTransactions(ctx, f)
}

// History lists one page of a single roll's transactions. Rolls outside the
// scope read as empty history, not as an error.
func (svc *Service) History(ctx context.Context, scope branch.Scope, roll string, page int) ([]Transaction, error) {
	if !branch.Matches(scope.Prefix(), roll) {
		return []Transaction{}, nil
	}
	if page < 0 {
		page = 0
	}
	return svc.repo.QueryTransactionsByRoll(ctx, roll, page)
}

// LegacyHistory fetches a roll's pre-migration fee history from the sheet.
func (svc *Service) LegacyHistory(ctx context.Context, scope branch.Scope, roll string) (LegacyHistory, error) {
	if !branch.Matches(scope.Prefix(), roll) {
		return LegacyHistory{Fees: map[string]float64{}}, nil
	}
	return svc.legacy.FeeHistory(ctx, roll)
}

// LastPayment returns a roll's most recent transaction, for prefilling the
// payment form. ErrNotFound when the roll has none.
func (svc *Service) LastPayment(ctx context.Context, scope branch.Scope, roll string) (Transaction, error) {
	txns, err := svc.History(ctx, scope, roll, 0)
	if err != nil {
		return Transaction{}, err
	}
	if len(txns) == 0 {
		return Transaction{}, ErrNotFound
	}
	return txns[0], nil
}

// Update patches a transaction. The row must fall under the caller's scope;
// rows outside it read as not found.
func (svc *Service) Update(ctx context.Context, scope branch.Scope, id int64, patch UpdateTransaction) (Transaction, error) {
	txn, err := svc.repo.GetTransaction(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if !branch.Matches(scope.Prefix(), txn.RollNo) {
		return Transaction{}, ErrNotFound
	}
	updated, err := svc.repo.UpdateTransaction(ctx, id, patch)
	if err != nil {
		return Transaction{}, err
	}
	svc.status.Flush()
	return updated, nil
}

// Delete removes a transaction, with the same scope guard as Update.
func (svc *Service) Delete(ctx context.Context, scope branch.Scope, id int64) error {
	txn, err := svc.repo.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if !branch.Matches(scope.Prefix(), txn.RollNo) {
		return ErrNotFound
	}
	if err = svc.repo.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	svc.status.Flush()
	return nil
}

// Status returns the paid-up standing of one branch's students, cached for
// the configured TTL. Restricted scopes always get their own branch; the
// unrestricted scope picks one via selected and falls back to
// DefaultStatusBranch. refresh bypasses the cache.
func (svc *Service) Status(ctx context.Context, scope branch.Scope, selected string, refresh bool) ([]StatusRow, error) {
	branchName := scope.Branch()
	if scope.All() {
		branchName = scope.Narrow(selected).Branch()
		if branchName == branch.All {
			branchName = DefaultStatusBranch
		}
	}

	load := func() ([]StatusRow, error) { return svc.legacy.BranchStatus(ctx, branchName) }
	if refresh {
		return svc.status.Refresh(branchName, load)
	}
	return svc.status.Get(branchName, load)
}

// Revenue assembles the revenue screen's figures for a given month.
func (svc *Service) Revenue(ctx context.Context, year, month int) (RevenueReport, error) {
	rpt := RevenueReport{Year: year, Month: month}

	var err error
	if rpt.MonthlyRevenue, err = svc.agg.MonthlyRevenue(ctx, year, month); err != nil {
		return RevenueReport{}, errors.Wrap(err, "monthly revenue")
	}
	if rpt.PendingByBranch, err = svc.agg.PendingFeesByBranch(ctx); err != nil {
		return RevenueReport{}, errors.Wrap(err, "pending fees")
	}
	if rpt.ActiveStudents, err = svc.agg.CountActiveStudents(ctx); err != nil {
		return RevenueReport{}, errors.Wrap(err, "active students")
	}
	return rpt, nil
}

// Dashboard gathers the six dashboard aggregates concurrently. A failed
// aggregate degrades to its zero value and is named in Failed instead of
// failing the whole screen.
func (svc *Service) Dashboard(ctx context.Context) DashboardStats {
	now := svc.now()
	stats := DashboardStats{GeneratedAtUnix: now.Unix()}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []string
	)
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				svc.logger.Error("dashboard aggregate failed", "metric", name, "err", err)
				mu.Lock()
				failed = append(failed, name)
				mu.Unlock()
			}
		}()
	}

	run("active_students", func() (err error) {
		stats.ActiveStudents, err = svc.agg.CountActiveStudents(ctx)
		return
	})
	run("monthly_revenue", func() (err error) {
		stats.MonthlyRevenue, err = svc.agg.MonthlyRevenue(ctx, now.Year(), int(now.Month()))
		return
	})
	run("active_branches", func() (err error) {
		stats.ActiveBranches, err = svc.agg.CountBranches(ctx)
		return
	})
	run("pending_fees", func() (err error) {
		pending, err := svc.agg.PendingFeesByBranch(ctx)
		if err != nil {
			return err
		}
		for _, amount := range pending {
			stats.PendingFees += amount
		}
		return nil
	})
	run("total_courses", func() (err error) {
		stats.TotalCourses, err = svc.agg.CountCourses(ctx)
		return
	})
	run("open_enquiries", func() (err error) {
		stats.OpenEnquiries, err = svc.agg.CountOpenEnquiries(ctx)
		return
	})

	wg.Wait()
	sort.Strings(failed)
	stats.Failed = failed
	return stats
}
