package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Movie is a catalog entry. Movies are not owned by any user.
type Movie struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Director    string    `json:"director"`
	Genre       string    `json:"genre"`
	ReleaseYear int       `json:"release_year"`
	Synopsis    string    `json:"synopsis"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MovieInput carries the mutable movie fields for create/update.
type MovieInput struct {
	Title       string `json:"title"`
	Director    string `json:"director"`
	Genre       string `json:"genre"`
	ReleaseYear int    `json:"release_year"`
	Synopsis    string `json:"synopsis"`
	ImageURL    string `json:"image_url"`
}

type MovieRepository interface {
	List(ctx context.Context, page, perPage int) ([]Movie, int, error)
	Get(ctx context.Context, id int64) (*Movie, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, in MovieInput) (*Movie, error)
	Update(ctx context.Context, id int64, in MovieInput) (*Movie, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type PgMovieRepository struct {
	db *pgxpool.Pool
}

func NewPgMovieRepository(db *pgxpool.Pool) *PgMovieRepository {
	return &PgMovieRepository{db: db}
}

func (r *PgMovieRepository) List(ctx context.Context, page, perPage int) ([]Movie, int, error) {
	if page <= 0 || perPage <= 0 {
		return nil, 0, errors.New("invalid pagination")
	}
	const countQ = `SELECT COUNT(*) FROM movies`
	var total int
	if err := r.db.QueryRow(ctx, countQ).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `
SELECT id, title, director, genre, release_year, synopsis, image_url, created_at, updated_at
FROM movies
ORDER BY id
LIMIT $1 OFFSET $2
`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]Movie, 0, perPage)
	for rows.Next() {
		var m Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.Director, &m.Genre, &m.ReleaseYear, &m.Synopsis, &m.ImageURL, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *PgMovieRepository) Get(ctx context.Context, id int64) (*Movie, error) {
	const q = `
SELECT id, title, director, genre, release_year, synopsis, image_url, created_at, updated_at
FROM movies WHERE id=$1`
	var m Movie
	if err := r.db.QueryRow(ctx, q, id).Scan(&m.ID, &m.Title, &m.Director, &m.Genre, &m.ReleaseYear, &m.Synopsis, &m.ImageURL, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PgMovieRepository) Exists(ctx context.Context, id int64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM movies WHERE id=$1)`
	var exists bool
	if err := r.db.QueryRow(ctx, q, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgMovieRepository) Create(ctx context.Context, in MovieInput) (*Movie, error) {
	const q = `
INSERT INTO movies (title, director, genre, release_year, synopsis, image_url)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id, created_at, updated_at`
	m := movieFromInput(in)
	if err := r.db.QueryRow(ctx, q, m.Title, m.Director, m.Genre, m.ReleaseYear, m.Synopsis, m.ImageURL).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PgMovieRepository) Update(ctx context.Context, id int64, in MovieInput) (*Movie, error) {
	const q = `
UPDATE movies
SET title=$1, director=$2, genre=$3, release_year=$4, synopsis=$5, image_url=$6, updated_at=now()
WHERE id=$7
RETURNING id, created_at, updated_at`
	m := movieFromInput(in)
	if err := r.db.QueryRow(ctx, q, m.Title, m.Director, m.Genre, m.ReleaseYear, m.Synopsis, m.ImageURL, id).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// Delete returns whether a row was actually removed.
func (r *PgMovieRepository) Delete(ctx context.Context, id int64) (bool, error) {
	const q = `DELETE FROM movies WHERE id=$1`
	tag, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func movieFromInput(in MovieInput) Movie {
	return Movie{
		Title:       strings.TrimSpace(in.Title),
		Director:    strings.TrimSpace(in.Director),
		Genre:       strings.TrimSpace(in.Genre),
		ReleaseYear: in.ReleaseYear,
		Synopsis:    strings.TrimSpace(in.Synopsis),
		ImageURL:    strings.TrimSpace(in.ImageURL),
	}
}
