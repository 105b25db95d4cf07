// Package note implements per-user scratch notes. Notes are private: every
// operation is keyed by the owning identity and other users' notes read as
// not found.
package note

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/vintech/portal/core"
)

var ErrNotFound = errors.New("note not found")

// Note is a row of the backend "notes" table.
type Note struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type NewNote struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
}

func (nn *NewNote) Validate(validate *validator.Validate, translator ut.Translator) error {
	nn.Title = core.CleanString(nn.Title)
	nn.Content = core.CleanString(nn.Content)
	return validate.Struct(nn)
}

type UpdateNote struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

type (
	Repository interface {
		// QueryNotes lists a user's notes, newest first.
		QueryNotes(ctx context.Context, userID string) ([]Note, error)
		GetNote(ctx context.Context, id int64) (Note, error)
		CreateNote(ctx context.Context, n Note) (Note, error)
		UpdateNote(ctx context.Context, id int64, patch UpdateNote) (Note, error)
		DeleteNote(ctx context.Context, id int64) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Query(ctx context.Context, userID string) ([]Note, error) {
	notes, err := svc.repo.QueryNotes(ctx, userID)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []Note{}
	}
	return notes, nil
}

func (svc *Service) Create(ctx context.Context, userID string, nn NewNote) (Note, error) {
	return svc.repo.CreateNote(ctx, Note{
		UserID:  userID,
		Title:   nn.Title,
		Content: nn.Content,
	})
}

// Update patches a note the caller owns. Someone else's note reads as not
// found rather than forbidden.
func (svc *Service) Update(ctx context.Context, userID string, id int64, patch UpdateNote) (Note, error) {
	n, err := svc.repo.GetNote(ctx, id)
	if err != nil {
		return Note{}, err
	}
	if n.UserID != userID {
		return Note{}, ErrNotFound
	}
	return svc.repo.UpdateNote(ctx, id, patch)
}

func (svc *Service) Delete(ctx context.Context, userID string, id int64) error {
	n, err := svc.repo.GetNote(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrNotFound
	}
	return svc.repo.DeleteNote(ctx, id)
}
