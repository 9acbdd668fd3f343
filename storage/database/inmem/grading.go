package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grading"
)

type scaleRepository struct {
	db *scaleTable
}

var _ grading.Repository = (*scaleRepository)(nil) // interface compliance check

func NewScaleRepository(db *DB) grading.Repository {
	return &scaleRepository{db: db.scale}
}

func cloneScale(s grading.Scale) grading.Scale {
	s.Bands = append([]grading.Band(nil), s.Bands...)
	return s
}

func (repo *scaleRepository) CreateScale(_ context.Context, scale grading.Scale, _ ...core.DBExecutor) (grading.Scale, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	scale = cloneScale(scale)
	repo.db.table[scale.ID] = scale
	return cloneScale(scale), nil
}

func (repo *scaleRepository) GetScale(_ context.Context, schoolID, id string, _ ...core.DBExecutor) (grading.Scale, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.table[id]; ok && s.SchoolID == schoolID {
		return cloneScale(s), nil
	}
	return grading.Scale{}, grading.ErrNotFound
}

func (repo *scaleRepository) GetDefaultScale(_ context.Context, schoolID string, _ ...core.DBExecutor) (grading.Scale, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.table {
		if s.SchoolID == schoolID && s.IsDefault {
			return cloneScale(s), nil
		}
	}
	return grading.Scale{}, grading.ErrNotFound
}

func (repo *scaleRepository) QueryScales(_ context.Context, schoolID string, _ ...core.DBExecutor) ([]grading.Scale, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	scales := make([]grading.Scale, 0)
	for _, s := range repo.db.table {
		if s.SchoolID == schoolID {
			scales = append(scales, cloneScale(s))
		}
	}
	sort.Slice(scales, func(i, j int) bool { return scales[i].CreatedAt.Before(scales[j].CreatedAt) })
	return scales, nil
}

func (repo *scaleRepository) SetDefaultScale(_ context.Context, schoolID, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if s, ok := repo.db.table[id]; !ok || s.SchoolID != schoolID {
		return grading.ErrNotFound
	}
	now := core.NowFunc().UTC()
	for k, s := range repo.db.table {
		if s.SchoolID != schoolID {
			continue
		}
		isDefault := k == id
		if s.IsDefault != isDefault {
			s.IsDefault = isDefault
			s.UpdatedAt = now
			repo.db.table[k] = s
		}
	}
	return nil
}
