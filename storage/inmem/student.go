package inmem

import (
	"context"
	"sort"

	"github.com/vintech/portal/core/student"
)

type StudentRepo struct {
	db   *DB
	rows map[string]student.Student
}

var _ student.Repository = (*StudentRepo)(nil)

func (repo *StudentRepo) QueryStudents(_ context.Context, branchName string) ([]student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	var res []student.Student
	for _, s := range repo.rows {
		if branchName == "" || s.Branch == branchName {
			res = append(res, s)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].RollNumber < res[j].RollNumber })
	return res, nil
}

func (repo *StudentRepo) GetStudent(_ context.Context, roll string) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	s, ok := repo.rows[roll]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	return s, nil
}

func (repo *StudentRepo) CreateStudents(_ context.Context, students []student.Student) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if repo.rows == nil {
		repo.rows = make(map[string]student.Student)
	}
	for _, s := range students {
		repo.rows[s.RollNumber] = s
	}
	return nil
}

func (repo *StudentRepo) UpdateStudent(_ context.Context, roll string, patch student.UpdateStudent) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	s, ok := repo.rows[roll]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	if patch.StudentName != "" {
		s.StudentName = patch.StudentName
	}
	if patch.FatherName != "" {
		s.FatherName = patch.FatherName
	}
	if patch.MotherName != "" {
		s.MotherName = patch.MotherName
	}
	if patch.Course != "" {
		s.Course = patch.Course
	}
	if patch.Duration != "" {
		s.Duration = patch.Duration
	}
	if patch.FeeMonth != nil {
		s.FeeMonth = patch.FeeMonth
	}
	if patch.PhoneNumber != "" {
		s.PhoneNumber = patch.PhoneNumber
	}
	if patch.AdmissionDate != "" {
		s.AdmissionDate = patch.AdmissionDate
	}
	if patch.BatchTime != "" {
		s.BatchTime = patch.BatchTime
	}
	repo.rows[roll] = s
	return s, nil
}

func (repo *StudentRepo) DeleteStudent(_ context.Context, roll string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.rows[roll]; !ok {
		return student.ErrNotFound
	}
	delete(repo.rows, roll)
	return nil
}
