package postgres

import (
	"github.com/jmoiron/sqlx"
)

// BaseRepository holds the shared database handle all repositories
// embed. Every store here is a single-statement read or write, so no
// transaction helper is carried.
type BaseRepository struct {
	db *sqlx.DB
}

// NewBaseRepository creates a new base repository.
func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}
