package fees

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/vintech/portal/core"
)

// PaidOnLayout is the stored textual date format of transaction rows
// (day/month/year, not ISO). Existing rows already use it; do not change.
const PaidOnLayout = "02/01/2006"

// formLayout is the HTML date-input format payments arrive in.
const formLayout = "2006-01-02"

// Transaction is a fee payment record in the backend "transaction" table.
// RollNo should reference a Student but is not enforced referentially;
// orphaned transactions are tolerated.
type Transaction struct {
	ID          int64   `json:"id"`
	RollNo      string  `json:"roll_no"`
	StudentName string  `json:"student_name"`
	FatherName  string  `json:"father_name"`
	AmountPaid  float64 `json:"amount_paid"`
	ReceiptNo   string  `json:"receipt_no"`
	PaidOn      string  `json:"paid_on"` // DD/MM/YYYY text
}

// NewPayment is the fee payment form.
type NewPayment struct {
	Roll    string  `json:"roll" validate:"required"`
	Student string  `json:"student" validate:"required"`
	Father  string  `json:"father"`
	Amount  float64 `json:"amount" validate:"required,gt=0"`
	Receipt string  `json:"receipt"`
	PaidOn  string  `json:"paid_on"` // YYYY-MM-DD; defaults to today
}

func (np *NewPayment) Validate(validate *validator.Validate, translator ut.Translator) error {
	np.Roll = core.CleanString(np.Roll, true /* lower */)
	np.Student = core.CleanString(np.Student)
	np.Father = core.CleanString(np.Father)
	np.Receipt = core.CleanString(np.Receipt)
	np.PaidOn = core.CleanString(np.PaidOn)
	return validate.Struct(np)
}

// UpdateTransaction defines what an owner may patch on a transaction.
// An untouched PaidOn round-trips through updates unchanged.
type UpdateTransaction struct {
	RollNo      string   `json:"roll_no,omitempty"`
	StudentName string   `json:"student_name,omitempty"`
	FatherName  string   `json:"father_name,omitempty"`
	AmountPaid  *float64 `json:"amount_paid,omitempty"`
	ReceiptNo   string   `json:"receipt_no,omitempty"`
	PaidOn      string   `json:"paid_on,omitempty"` // DD/MM/YYYY text, stored verbatim
}

// TxnFilter narrows the transaction listing the way the history screen does.
type TxnFilter struct {
	Prefix string // roll-number branch prefix; "" lists all branches
	Search string // matched case-insensitively on student name, receipt and roll
	Month  int    // 1-12; matches the MM segment of paid_on
	Year   int    // matches the YYYY suffix of paid_on
	Page   int    // zero-based, TxnPageLimit rows per page
}

const (
	TxnPageLimit     = 50
	HistoryPageLimit = 20
)

// Snapshot is the denormalized "latest payment" record written through to
// the legacy sheet on every payment.
type Snapshot struct {
	RollNumber     string  `json:"roll_number"`
	StudentName    string  `json:"student_name"`
	FatherName     string  `json:"father_name"`
	LastAmountPaid float64 `json:"last_amount_paid"`
	LastPaid       string  `json:"last_paid"`
}

// StatusRow is one student's paid-up standing for a branch.
type StatusRow struct {
	RollNumber    string  `json:"roll_number"`
	StudentName   string  `json:"student_name"`
	ExpectedTotal float64 `json:"expected_total"`
	TotalPaid     float64 `json:"total_paid"`
	Status        string  `json:"status"`
}

// LegacyHistory is the legacy sheet's per-roll fee history: date -> amount.
type LegacyHistory struct {
	Exists bool               `json:"exists"`
	Fees   map[string]float64 `json:"fees"`
}

// RevenueReport aggregates the revenue screen's numbers.
type RevenueReport struct {
	Year            int                `json:"year"`
	Month           int                `json:"month"`
	MonthlyRevenue  float64            `json:"monthly_revenue"`
	PendingByBranch map[string]float64 `json:"pending_by_branch"`
	ActiveStudents  int                `json:"active_students"`
}

// DashboardStats carries the six dashboard cards. Metrics whose aggregate
// call failed are zero-valued and listed in Failed.
type DashboardStats struct {
	ActiveStudents  int      `json:"active_students"`
	MonthlyRevenue  float64  `json:"monthly_revenue"`
	ActiveBranches  int      `json:"active_branches"`
	PendingFees     float64  `json:"pending_fees"`
	TotalCourses    int      `json:"total_courses"`
	OpenEnquiries   int      `json:"open_enquiries"`
	Failed          []string `json:"failed,omitempty"`
	GeneratedAtUnix int64    `json:"generated_at"`
}

// NormalizePaidOn converts a form date (YYYY-MM-DD) to the stored
// DD/MM/YYYY text. An empty input takes today's date.
func NormalizePaidOn(formDate string, now time.Time) (string, error) {
	if formDate == "" {
		return now.Format(PaidOnLayout), nil
	}
	t, err := time.Parse(formLayout, formDate)
	if err != nil {
		return "", err
	}
	return t.Format(PaidOnLayout), nil
}
