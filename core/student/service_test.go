package student

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vintech/portal/core/branch"
)

type fakeRepo struct {
	rows map[string]Student
}

func newFakeRepo(students ...Student) *fakeRepo {
	repo := &fakeRepo{rows: make(map[string]Student)}
	for _, s := range students {
		repo.rows[s.RollNumber] = s
	}
	return repo
}

func (r *fakeRepo) QueryStudents(_ context.Context, branchName string) ([]Student, error) {
	var res []Student
	for _, s := range r.rows {
		if branchName == "" || s.Branch == branchName {
			res = append(res, s)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].RollNumber < res[j].RollNumber })
	return res, nil
}

func (r *fakeRepo) GetStudent(_ context.Context, roll string) (Student, error) {
	s, ok := r.rows[roll]
	if !ok {
		return Student{}, ErrNotFound
	}
	return s, nil
}

func (r *fakeRepo) CreateStudents(_ context.Context, students []Student) error {
	for _, s := range students {
		r.rows[s.RollNumber] = s
	}
	return nil
}

func (r *fakeRepo) UpdateStudent(_ context.Context, roll string, patch UpdateStudent) (Student, error) {
	s, ok := r.rows[roll]
	if !ok {
		return Student{}, ErrNotFound
	}
	if patch.StudentName != "" {
		s.StudentName = patch.StudentName
	}
	if patch.Course != "" {
		s.Course = patch.Course
	}
	r.rows[roll] = s
	return s, nil
}

func (r *fakeRepo) DeleteStudent(_ context.Context, roll string) error {
	if _, ok := r.rows[roll]; !ok {
		return ErrNotFound
	}
	delete(r.rows, roll)
	return nil
}

func mustScope(t *testing.T, branchName string) branch.Scope {
	t.Helper()
	scope, err := branch.NewScope(branchName)
	require.NoError(t, err)
	return scope
}

func TestServiceCreatePrefixesRoll(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo)

	created, err := svc.Create(ctx, []NewStudent{
		{RollNumber: "7", StudentName: "asha", FatherName: "ram", Course: "dca", Branch: "second"},
		{RollNumber: "12", StudentName: "vikram", FatherName: "shyam", Course: "pgdca", Branch: "main"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.Equal(t, "s_7", created[0].RollNumber)
	assert.Equal(t, "m_12", created[1].RollNumber)

	got, err := repo.GetStudent(ctx, "s_7")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Branch)
	assert.True(t, strings.HasPrefix(got.RollNumber, branch.Prefix(got.Branch)))
}

func TestServiceQueryScoping(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(
		Student{RollNumber: "m_1", StudentName: "a", Branch: "main"},
		Student{RollNumber: "m_2", StudentName: "b", Branch: "main"},
		Student{RollNumber: "s_1", StudentName: "c", Branch: "second"},
	)
	svc := NewService(repo)

	tests := []struct {
		name      string
		scope     branch.Scope
		wantRolls []string
	}{
		{"restricted sees own branch", mustScope(t, "main"), []string{"m_1", "m_2"}},
		{"other branch sees its own", mustScope(t, "second"), []string{"s_1"}},
		{"unrestricted sees everything", mustScope(t, branch.All), []string{"m_1", "m_2", "s_1"}},
		{"unrestricted narrowed", mustScope(t, branch.All).Narrow("second"), []string{"s_1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			students, err := svc.Query(ctx, tt.scope)
			require.NoError(t, err)
			rolls := make([]string, 0, len(students))
			for _, s := range students {
				rolls = append(rolls, s.RollNumber)
			}
			assert.Equal(t, tt.wantRolls, rolls)
		})
	}
}

func TestServiceGetOutsideScopeIsNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(Student{RollNumber: "s_1", StudentName: "c", Branch: "second"})
	svc := NewService(repo)

	_, err := svc.Get(ctx, mustScope(t, "main"), "s_1")
	assert.Equal(t, ErrNotFound, err)

	got, err := svc.Get(ctx, mustScope(t, "second"), "s_1")
	require.NoError(t, err)
	assert.Equal(t, "c", got.StudentName)
}

func TestServiceDeleteExactRoll(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(
		Student{RollNumber: "m_1", Branch: "main"},
		Student{RollNumber: "m_11", Branch: "main"},
	)
	svc := NewService(repo)

	require.NoError(t, svc.Delete(ctx, mustScope(t, "main"), "m_1"))

	_, err := repo.GetStudent(ctx, "m_1")
	assert.Equal(t, ErrNotFound, err)
	// the longer roll sharing the deleted one as a prefix is untouched
	_, err = repo.GetStudent(ctx, "m_11")
	assert.NoError(t, err)

	// deleting outside scope fails closed
	assert.Equal(t, ErrNotFound, svc.Delete(ctx, mustScope(t, "second"), "m_11"))
}

func TestGrouped(t *testing.T) {
	grouped := Grouped([]Student{
		{RollNumber: "m_1", Branch: "main"},
		{RollNumber: "s_1", Branch: "second"},
		{RollNumber: "m_2", Branch: "main"},
	})
	require.Len(t, grouped, 2)
	assert.Len(t, grouped["main"], 2)
	assert.Len(t, grouped["second"], 1)
}
