package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fermaport/notifier/internal/repository"
)

type producerRepository struct {
	BaseRepository
}

func NewProducerRepository(base BaseRepository) repository.ProducerRepository {
	return &producerRepository{base}
}

func (r *producerRepository) GetName(ctx context.Context, id string) (string, error) {
	query := `SELECT name FROM producers WHERE id = $1`

	var name string
	err := r.db.GetContext(ctx, &name, query, id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get producer name: %w", err)
	}
	return name, nil
}
