package student

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vintech/portal/core/branch"
)

// ErrNotFound is returned on single-row lookups; callers generally treat it
// as "clear the form", not as a failure.
var ErrNotFound = errors.New("student not found")

type (
	Repository interface {
		// QueryStudents lists students ordered by roll number, optionally
		// pre-filtered server-side by branch ("" means no filter).
		QueryStudents(ctx context.Context, branchName string) ([]Student, error)
		GetStudent(ctx context.Context, roll string) (Student, error)
		CreateStudents(ctx context.Context, students []Student) error
		UpdateStudent(ctx context.Context, roll string, patch UpdateStudent) (Student, error)
		DeleteStudent(ctx context.Context, roll string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create batch-inserts admission form rows. Each stored roll number is the
// branch prefix plus the bare form roll ("second" + "7" -> "s_7"), which
// keeps the prefix/branch invariant true by construction.
func (svc *Service) Create(ctx context.Context, rows []NewStudent) ([]Student, error) {
	students := make([]Student, 0, len(rows))
	for _, ns := range rows {
		students = append(students, Student{
			RollNumber:    branch.Prefix(ns.Branch) + ns.RollNumber,
			StudentName:   ns.StudentName,
			FatherName:    ns.FatherName,
			MotherName:    ns.MotherName,
			Course:        ns.Course,
			Duration:      ns.Duration,
			FeeMonth:      ns.FeeMonth,
			PhoneNumber:   ns.PhoneNumber,
			AdmissionDate: ns.AdmissionDate,
			Branch:        ns.Branch,
			BatchTime:     ns.BatchTime,
		})
	}
	if err := svc.repo.CreateStudents(ctx, students); err != nil {
		return nil, err
	}
	return students, nil
}

// Query lists students visible to the scope. Restricted scopes are
// pre-filtered server-side by branch; the unrestricted scope (optionally
// narrowed via the selector) sees everything.
func (svc *Service) Query(ctx context.Context, scope branch.Scope) ([]Student, error) {
	branchFilter := ""
	if !scope.All() {
		branchFilter = scope.Branch()
	}
	students, err := svc.repo.QueryStudents(ctx, branchFilter)
	if err != nil {
		return nil, err
	}
	if students == nil {
		students = []Student{}
	}
	return students, nil
}

// Grouped buckets students by their branch key, for the cross-branch view.
func Grouped(students []Student) map[string][]Student {
	grouped := make(map[string][]Student)
	for _, s := range students {
		grouped[s.Branch] = append(grouped[s.Branch], s)
	}
	return grouped
}

// Get fetches a single student by roll. Rolls outside the caller's scope are
// reported as not found rather than leaking the row's existence.
func (svc *Service) Get(ctx context.Context, scope branch.Scope, roll string) (Student, error) {
	if !branch.Matches(scope.Prefix(), roll) {
		return Student{}, ErrNotFound
	}
	return svc.repo.GetStudent(ctx, roll)
}

func (svc *Service) Update(ctx context.Context, scope branch.Scope, roll string, us UpdateStudent) (Student, error) {
	if !branch.Matches(scope.Prefix(), roll) {
		return Student{}, ErrNotFound
	}
	return svc.repo.UpdateStudent(ctx, roll, us)
}

// Delete removes exactly the row keyed by roll.
func (svc *Service) Delete(ctx context.Context, scope branch.Scope, roll string) error {
	if !branch.Matches(scope.Prefix(), roll) {
		return ErrNotFound
	}
	return svc.repo.DeleteStudent(ctx, roll)
}
