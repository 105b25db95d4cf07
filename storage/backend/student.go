package backend

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vintech/portal/core/student"
)

const studentTable = "students"

// StudentRepo reads and writes the backend "students" table.
type StudentRepo struct {
	client *Client
}

var _ student.Repository = (*StudentRepo)(nil)

func NewStudentRepo(client *Client) *StudentRepo {
	return &StudentRepo{client: client}
}

func (repo *StudentRepo) QueryStudents(ctx context.Context, branchName string) ([]student.Student, error) {
	q := Query{
		Table: studentTable,
		Order: "roll_number.asc",
	}
	if branchName != "" {
		q.Filters = append(q.Filters, Eq("branch", branchName))
	}
	var students []student.Student
	err := repo.client.QueryRows(ctx, q, &students)
	return students, err
}

func (repo *StudentRepo) GetStudent(ctx context.Context, roll string) (student.Student, error) {
	var s student.Student
	err := repo.client.GetRow(ctx, Query{
		Table:   studentTable,
		Filters: []Filter{Eq("roll_number", roll)},
	}, &s)
	if errors.Cause(err) == ErrNoRow {
		return student.Student{}, student.ErrNotFound
	}
	return s, err
}

func (repo *StudentRepo) CreateStudents(ctx context.Context, students []student.Student) error {
	return repo.client.InsertRows(ctx, studentTable, students, nil)
}

func (repo *StudentRepo) UpdateStudent(ctx context.Context, roll string, patch student.UpdateStudent) (student.Student, error) {
	var s student.Student
	err := repo.client.UpdateRow(ctx, studentTable, []Filter{Eq("roll_number", roll)}, patch, &s)
	if errors.Cause(err) == ErrNoRow {
		return student.Student{}, student.ErrNotFound
	}
	return s, err
}

func (repo *StudentRepo) DeleteStudent(ctx context.Context, roll string) error {
	err := repo.client.DeleteRow(ctx, studentTable, []Filter{Eq("roll_number", roll)})
	if errors.Cause(err) == ErrNoRow {
		return student.ErrNotFound
	}
	return err
}
