package school

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines school directory access. School CRUD lives in a
// separate service; this API only resolves existence and active status.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*School, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*School, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates school repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*School, error) {
	query := `SELECT * FROM schools WHERE id = $1`
	var s School
	err := r.db.GetContext(ctx, &s, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) GetBySubdomain(ctx context.Context, subdomain string) (*School, error) {
	query := `SELECT * FROM schools WHERE subdomain = $1`
	var s School
	err := r.db.GetContext(ctx, &s, query, subdomain)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
