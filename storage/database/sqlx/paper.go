package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/gradewise/gradewise/core/paper"
)

type paperRow struct {
	ID        string         `db:"id"`
	Title     string         `db:"title"`
	Course    string         `db:"course"`
	Parts     types.JSONText `db:"parts"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r paperRow) toPaper() (paper.Paper, error) {
	var parts []paper.Part
	if err := r.Parts.Unmarshal(&parts); err != nil {
		return paper.Paper{}, errors.Wrap(err, "decoding parts")
	}
	return paper.Paper{
		ID:        r.ID,
		Title:     r.Title,
		Course:    r.Course,
		Parts:     parts,
		CreatedAt: r.CreatedAt.UTC(),
	}, nil
}

type paperRepository struct {
	db *sqlx.DB
}

func NewPaperRepository(db *sqlx.DB) paper.Repository {
	return &paperRepository{db: db}
}

func (repo *paperRepository) Put(ctx context.Context, p paper.Paper) (paper.Paper, error) {
	if p.ID == "" {
		p.ID = paper.NewID()
	}
	parts, err := json.Marshal(p.Parts)
	if err != nil {
		return paper.Paper{}, errors.Wrap(err, "encoding parts")
	}

	row := paperRow{ID: p.ID, Title: p.Title, Course: p.Course, Parts: parts, CreatedAt: p.CreatedAt}
	const q = `INSERT INTO papers (id, title, course, parts, created_at)
		VALUES (:id, :title, :course, :parts, :created_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return paper.Paper{}, errors.Wrap(err, "inserting paper")
	}
	return p.Clone(), nil
}

func (repo *paperRepository) Get(ctx context.Context, id string) (paper.Paper, error) {
	var row paperRow
	const q = `SELECT id, title, course, parts, created_at FROM papers WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return paper.Paper{}, paper.ErrNotFound
		}
		return paper.Paper{}, errors.Wrap(err, "selecting paper")
	}
	return row.toPaper()
}

func (repo *paperRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM papers`); err != nil {
		return 0, errors.Wrap(err, "counting papers")
	}
	return n, nil
}
