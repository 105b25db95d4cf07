package backend

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	"github.com/vintech/portal/core/note"
)

const noteTable = "notes"

// NoteRepo reads and writes the backend "notes" table.
type NoteRepo struct {
	client *Client
}

var _ note.Repository = (*NoteRepo)(nil)

func NewNoteRepo(client *Client) *NoteRepo {
	return &NoteRepo{client: client}
}

func (repo *NoteRepo) QueryNotes(ctx context.Context, userID string) ([]note.Note, error) {
	var notes []note.Note
	err := repo.client.QueryRows(ctx, Query{
		Table:   noteTable,
		Filters: []Filter{Eq("user_id", userID)},
		Order:   "id.desc",
	}, &notes)
	return notes, err
}

func (repo *NoteRepo) GetNote(ctx context.Context, id int64) (note.Note, error) {
	var n note.Note
	err := repo.client.GetRow(ctx, Query{
		Table:   noteTable,
		Filters: []Filter{Eq("id", strconv.FormatInt(id, 10))},
	}, &n)
	if errors.Cause(err) == ErrNoRow {
		return note.Note{}, note.ErrNotFound
	}
	return n, err
}

func (repo *NoteRepo) CreateNote(ctx context.Context, n note.Note) (note.Note, error) {
	type insertRow struct {
		UserID  string `json:"user_id"`
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	var created []note.Note
	err := repo.client.InsertRows(ctx, noteTable, []insertRow{{
		UserID:  n.UserID,
		Title:   n.Title,
		Content: n.Content,
	}}, &created)
	if err != nil {
		return note.Note{}, err
	}
	if len(created) == 0 {
		return note.Note{}, errors.New("backend returned no inserted note")
	}
	return created[0], nil
}

func (repo *NoteRepo) UpdateNote(ctx context.Context, id int64, patch note.UpdateNote) (note.Note, error) {
	var n note.Note
	err := repo.client.UpdateRow(ctx, noteTable, []Filter{Eq("id", strconv.FormatInt(id, 10))}, patch, &n)
	if errors.Cause(err) == ErrNoRow {
		return note.Note{}, note.ErrNotFound
	}
	return n, err
}

func (repo *NoteRepo) DeleteNote(ctx context.Context, id int64) error {
	err := repo.client.DeleteRow(ctx, noteTable, []Filter{Eq("id", strconv.FormatInt(id, 10))})
	if errors.Cause(err) == ErrNoRow {
		return note.ErrNotFound
	}
	return err
}
