// Package inmem holds in-memory implementations of the storage interfaces,
// used by tests and by local development without a backend.
package inmem

import (
	"sync"
)

// DB is a shared root so one fixture can hand related repos to a test.
type DB struct {
	mu sync.Mutex

	Identities   *IdentityRepo
	Students     *StudentRepo
	Transactions *TransactionRepo
	Notes        *NoteRepo
}

func NewDB() *DB {
	db := &DB{}
	db.Identities = &IdentityRepo{db: db}
	db.Students = &StudentRepo{db: db}
	db.Transactions = &TransactionRepo{db: db}
	db.Notes = &NoteRepo{db: db}
	return db
}
