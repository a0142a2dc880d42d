package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"tootsched/internal/models"
)

type CredentialsRepository interface {
	Get(ctx context.Context) (*models.Credentials, error)
	Upsert(ctx context.Context, creds *models.Credentials) error
}

type credentialsRepository struct {
	db *sql.DB
}

func NewCredentialsRepository(db *sql.DB) CredentialsRepository {
	return &credentialsRepository{db: db}
}

func (r *credentialsRepository) Get(ctx context.Context) (*models.Credentials, error) {
	query := `SELECT id, instance_url, access_token_enc, updated_at FROM credentials WHERE id = 1`

	var creds models.Credentials
	err := r.db.QueryRowContext(ctx, query).Scan(&creds.ID, &creds.InstanceURL, &creds.AccessTokenEnc, &creds.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &creds, nil
}

func (r *credentialsRepository) Upsert(ctx context.Context, creds *models.Credentials) error {
	query := `
		INSERT INTO credentials (id, instance_url, access_token_enc, updated_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET instance_url = EXCLUDED.instance_url,
			access_token_enc = EXCLUDED.access_token_enc,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, creds.InstanceURL, creds.AccessTokenEnc, time.Now().UTC())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
