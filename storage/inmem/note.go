package inmem

import (
	"context"
	"time"

	"github.com/vintech/portal/core/note"
)

type NoteRepo struct {
	db     *DB
	rows   []note.Note
	nextID int64
}

var _ note.Repository = (*NoteRepo)(nil)

func (repo *NoteRepo) QueryNotes(_ context.Context, userID string) ([]note.Note, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	var res []note.Note
	for i := len(repo.rows) - 1; i >= 0; i-- {
		if repo.rows[i].UserID == userID {
			res = append(res, repo.rows[i])
		}
	}
	return res, nil
}

func (repo *NoteRepo) GetNote(_ context.Context, id int64) (note.Note, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for _, n := range repo.rows {
		if n.ID == id {
			return n, nil
		}
	}
	return note.Note{}, note.ErrNotFound
}

func (repo *NoteRepo) CreateNote(_ context.Context, n note.Note) (note.Note, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.nextID++
	n.ID = repo.nextID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	repo.rows = append(repo.rows, n)
	return n, nil
}

func (repo *NoteRepo) UpdateNote(_ context.Context, id int64, patch note.UpdateNote) (note.Note, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for i, n := range repo.rows {
		if n.ID != id {
			continue
		}
		if patch.Title != "" {
			n.Title = patch.Title
		}
		if patch.Content != "" {
			n.Content = patch.Content
		}
		repo.rows[i] = n
		return n, nil
	}
	return note.Note{}, note.ErrNotFound
}

func (repo *NoteRepo) DeleteNote(_ context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for i, n := range repo.rows {
		if n.ID == id {
			repo.rows = append(repo.rows[:i], repo.rows[i+1:]...)
			return nil
		}
	}
	return note.ErrNotFound
}
