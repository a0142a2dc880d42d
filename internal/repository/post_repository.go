package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"tootsched/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, post *models.ScheduledPost) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error)
	Update(ctx context.Context, post *models.ScheduledPost) error
	Remove(ctx context.Context, id int64) error
	MarkPosted(ctx context.Context, id int64) error
	ListUnposted(ctx context.Context) ([]*models.ScheduledPost, error)
	ListDue(ctx context.Context, before time.Time) ([]*models.ScheduledPost, error)
	ListOrdered(ctx context.Context) ([]*models.ScheduledPost, error)
	NextPending(ctx context.Context, after time.Time) (*models.ScheduledPost, error)
	ListImagePaths(ctx context.Context) ([]string, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, content, content_warning, image_path, image_url, image_alt_text, scheduled_time, is_posted, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	err := row.Scan(
		&post.ID,
		&post.Content,
		&post.ContentWarning,
		&post.ImagePath,
		&post.ImageURL,
		&post.ImageAltText,
		&post.ScheduledTime,
		&post.IsPosted,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.ScheduledPost) (int64, error) {
	query := `
		INSERT INTO posts (content, content_warning, image_path, image_url, image_alt_text, scheduled_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		post.Content,
		post.ContentWarning,
		post.ImagePath,
		post.ImageURL,
		post.ImageAltText,
		post.ScheduledTime.UTC(),
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.ScheduledPost) error {
	query := `
		UPDATE posts
		SET content = $1,
			content_warning = $2,
			image_path = $3,
			image_url = $4,
			image_alt_text = $5,
			scheduled_time = $6,
			updated_at = $7
		WHERE id = $8 AND NOT is_posted
	`

	_, err := r.db.ExecContext(ctx, query,
		post.Content,
		post.ContentWarning,
		post.ImagePath,
		post.ImageURL,
		post.ImageAltText,
		post.ScheduledTime.UTC(),
		time.Now().UTC(),
		post.ID,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// MarkPosted flips is_posted exactly once; a posted record is never
// reverted or rewritten.
func (r *postRepository) MarkPosted(ctx context.Context, id int64) error {
	query := `UPDATE posts SET is_posted = TRUE, updated_at = $1 WHERE id = $2 AND NOT is_posted`
	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) ListUnposted(ctx context.Context) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE NOT is_posted ORDER BY scheduled_time`
	return r.queryPosts(ctx, query)
}

func (r *postRepository) ListDue(ctx context.Context, before time.Time) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE NOT is_posted AND scheduled_time <= $1 ORDER BY scheduled_time`
	return r.queryPosts(ctx, query, before.UTC())
}

func (r *postRepository) ListOrdered(ctx context.Context) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts ORDER BY scheduled_time`
	return r.queryPosts(ctx, query)
}

func (r *postRepository) NextPending(ctx context.Context, after time.Time) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE NOT is_posted AND scheduled_time > $1 ORDER BY scheduled_time LIMIT 1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, after.UTC()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) ListImagePaths(ctx context.Context) ([]string, error) {
	query := `SELECT image_path FROM posts WHERE image_path <> ''`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

func (r *postRepository) queryPosts(ctx context.Context, query string, args ...any) ([]*models.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}
