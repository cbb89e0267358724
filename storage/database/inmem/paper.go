package inmemdb

import (
	"context"

	"github.com/gradewise/gradewise/core/paper"
)

type paperRepository struct {
	db *paperTable
}

func NewPaperRepository(db *DB) paper.Repository {
	return &paperRepository{db: db.paper}
}

func (repo *paperRepository) Put(_ context.Context, p paper.Paper) (paper.Paper, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if p.ID == "" {
		p.ID = paper.NewID()
	}
	repo.db.table[p.ID] = p.Clone()
	return p.Clone(), nil
}

func (repo *paperRepository) Get(_ context.Context, id string) (paper.Paper, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return p.Clone(), nil
	}
	return paper.Paper{}, paper.ErrNotFound
}

func (repo *paperRepository) Count(context.Context) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.db.table), nil
}
