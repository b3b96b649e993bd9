package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Review holds a user's take on a movie. UserID is the ownership link:
// it is set once at creation and never reassigned, and every mutation
// must compare it against the requester's identity.
type Review struct {
	ID             int64     `json:"id"`
	MovieID        int64     `json:"movie_id"`
	UserID         int64     `json:"user_id"`
	AuthorUsername string    `json:"author_username"`
	Content        string    `json:"content"`
	Rating         int       `json:"rating"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ReviewRepository interface {
	List(ctx context.Context, page, perPage int) ([]Review, int, error)
	ListByMovie(ctx context.Context, movieID int64) ([]Review, error)
	Get(ctx context.Context, id int64) (*Review, error)
	Create(ctx context.Context, movieID, userID int64, content string, rating int) (*Review, error)
	Update(ctx context.Context, id int64, content string, rating int) (*Review, error)
	Delete(ctx context.Context, id int64) error
}

type PgReviewRepository struct {
	db *pgxpool.Pool
}

func NewPgReviewRepository(db *pgxpool.Pool) *PgReviewRepository {
	return &PgReviewRepository{db: db}
}

const reviewColumns = `r.id, r.movie_id, r.user_id, u.username, r.content, r.rating, r.created_at, r.updated_at`

func scanReview(row interface{ Scan(dest ...any) error }) (*Review, error) {
	var rv Review
	if err := row.Scan(&rv.ID, &rv.MovieID, &rv.UserID, &rv.AuthorUsername, &rv.Content, &rv.Rating, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *PgReviewRepository) List(ctx context.Context, page, perPage int) ([]Review, int, error) {
	if page <= 0 || perPage <= 0 {
		return nil, 0, errors.New("invalid pagination")
	}
	const countQ = `SELECT COUNT(*) FROM reviews`
	var total int
	if err := r.db.QueryRow(ctx, countQ).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `
SELECT `+reviewColumns+`
FROM reviews r
JOIN users u ON u.id = r.user_id
ORDER BY r.created_at DESC, r.id DESC
LIMIT $1 OFFSET $2
`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]Review, 0, perPage)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *rv)
	}
	return items, total, rows.Err()
}

func (r *PgReviewRepository) ListByMovie(ctx context.Context, movieID int64) ([]Review, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+reviewColumns+`
FROM reviews r
JOIN users u ON u.id = r.user_id
WHERE r.movie_id = $1
ORDER BY r.created_at DESC, r.id DESC
`, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]Review, 0)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *rv)
	}
	return items, rows.Err()
}

func (r *PgReviewRepository) Get(ctx context.Context, id int64) (*Review, error) {
	const q = `
SELECT ` + reviewColumns + `
FROM reviews r
JOIN users u ON u.id = r.user_id
WHERE r.id = $1`
	return scanReview(r.db.QueryRow(ctx, q, id))
}

func (r *PgReviewRepository) Create(ctx context.Context, movieID, userID int64, content string, rating int) (*Review, error) {
	const q = `
WITH inserted AS (
    INSERT INTO reviews (movie_id, user_id, content, rating)
    VALUES ($1,$2,$3,$4)
    RETURNING id, movie_id, user_id, content, rating, created_at, updated_at
)
SELECT i.id, i.movie_id, i.user_id, u.username, i.content, i.rating, i.created_at, i.updated_at
FROM inserted i
JOIN users u ON u.id = i.user_id`
	return scanReview(r.db.QueryRow(ctx, q, movieID, userID, strings.TrimSpace(content), rating))
}

func (r *PgReviewRepository) Update(ctx context.Context, id int64, content string, rating int) (*Review, error) {
	const q = `
WITH updated AS (
    UPDATE reviews
    SET content=$1, rating=$2, updated_at=now()
    WHERE id=$3
    RETURNING id, movie_id, user_id, content, rating, created_at, updated_at
)
SELECT u2.id, u2.movie_id, u2.user_id, u.username, u2.content, u2.rating, u2.created_at, u2.updated_at
FROM updated u2
JOIN users u ON u.id = u2.user_id`
	return scanReview(r.db.QueryRow(ctx, q, strings.TrimSpace(content), rating, id))
}

func (r *PgReviewRepository) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM reviews WHERE id=$1`
	_, err := r.db.Exec(ctx, q, id)
	return err
}
