package backend

import (
	"context"

	"github.com/vintech/portal/core/fees"
)

// Aggregates invokes the backend's server-side aggregate procedures. The
// heavy lifting (sums, counts, grouping) stays on the backend; this side only
// passes typed parameters and decodes scalars or row sets.
type Aggregates struct {
	client *Client
}

var _ fees.Aggregator = (*Aggregates)(nil)

func NewAggregates(client *Client) *Aggregates {
	return &Aggregates{client: client}
}

func (a *Aggregates) MonthlyRevenue(ctx context.Context, year, month int) (float64, error) {
	var total float64
	err := a.client.CallProcedure(ctx, "get_monthly_revenue",
		map[string]int{"year": year, "month": month}, &total)
	return total, err
}

func (a *Aggregates) PendingFeesByBranch(ctx context.Context) (map[string]float64, error) {
	var rows []struct {
		Branch  string  `json:"branch"`
		Pending float64 `json:"pending"`
	}
	if err := a.client.CallProcedure(ctx, "get_total_pending_fees_by_branch", nil, &rows); err != nil {
		return nil, err
	}
	pending := make(map[string]float64, len(rows))
	for _, row := range rows {
		pending[row.Branch] = row.Pending
	}
	return pending, nil
}

func (a *Aggregates) CountActiveStudents(ctx context.Context) (int, error) {
	return a.count(ctx, "count_active_students")
}

func (a *Aggregates) CountBranches(ctx context.Context) (int, error) {
	return a.count(ctx, "count_branches")
}

func (a *Aggregates) CountCourses(ctx context.Context) (int, error) {
	return a.count(ctx, "count_courses")
}

func (a *Aggregates) CountOpenEnquiries(ctx context.Context) (int, error) {
	return a.count(ctx, "count_open_enquiries")
}

func (a *Aggregates) count(ctx context.Context, proc string) (int, error) {
	var n int
	err := a.client.CallProcedure(ctx, proc, nil, &n)
	return n, err
}
