package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/instance"
	"github.com/trezcool/gradebook/core/results"
)

type instanceRepository struct {
	db *instanceTable
}

var _ instance.Repository = (*instanceRepository)(nil) // interface compliance check

func NewInstanceRepository(db *DB) instance.Repository {
	return &instanceRepository{db: db.instance}
}

func cloneInstance(inst instance.Instance) instance.Instance {
	inst.Subjects = append([]string(nil), inst.Subjects...)
	inst.ExamConfig.Components = append([]results.Component(nil), inst.ExamConfig.Components...)
	inst.Traits.AffectiveTraits = append([]string{}, inst.Traits.AffectiveTraits...)
	inst.Traits.PsychomotorSkills = append([]string{}, inst.Traits.PsychomotorSkills...)
	if inst.SourceFile != nil {
		sf := *inst.SourceFile
		inst.SourceFile = &sf
	}
	if inst.ArchivedAt != nil {
		at := *inst.ArchivedAt
		inst.ArchivedAt = &at
	}
	return inst
}

func (repo *instanceRepository) CreateActiveInstance(
	_ context.Context,
	inst instance.Instance,
	archivedAt time.Time,
	_ ...core.DBExecutor,
) (instance.Instance, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	version := 0
	for id, other := range repo.db.table {
		if other.Scope != inst.Scope {
			continue
		}
		if other.Version > version {
			version = other.Version
		}
		if other.Status == instance.StatusActive {
			at := archivedAt
			other.Status = instance.StatusArchived
			other.ArchivedAt = &at
			repo.db.table[id] = other
		}
	}

	inst.Version = version + 1
	inst.Status = instance.StatusActive
	inst.ArchivedAt = nil
	repo.db.table[inst.ID] = cloneInstance(inst)
	return cloneInstance(inst), nil
}

func (repo *instanceRepository) GetInstance(_ context.Context, schoolID, id string, _ ...core.DBExecutor) (instance.Instance, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if inst, ok := repo.db.table[id]; ok && inst.SchoolID == schoolID {
		return cloneInstance(inst), nil
	}
	return instance.Instance{}, instance.ErrNotFound
}

func (repo *instanceRepository) GetActiveInstance(_ context.Context, scope results.Scope, _ ...core.DBExecutor) (instance.Instance, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, inst := range repo.db.table {
		if inst.Scope == scope && inst.IsActive() {
			return cloneInstance(inst), nil
		}
	}
	return instance.Instance{}, instance.ErrNotFound
}

func (repo *instanceRepository) QueryInstances(_ context.Context, filter instance.QueryFilter, _ ...core.DBExecutor) ([]instance.Instance, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	insts := make([]instance.Instance, 0)
	for _, inst := range repo.db.table {
		if filter.Match(inst) {
			insts = append(insts, cloneInstance(inst))
		}
	}
	sort.Slice(insts, func(i, j int) bool {
		if !insts[i].CreatedAt.Equal(insts[j].CreatedAt) {
			return insts[i].CreatedAt.After(insts[j].CreatedAt)
		}
		return insts[i].Version > insts[j].Version
	})
	return insts, nil
}

func (repo *instanceRepository) ArchiveInstance(
	_ context.Context,
	schoolID, id string,
	archivedAt time.Time,
	_ ...core.DBExecutor,
) (instance.Instance, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	inst, ok := repo.db.table[id]
	if !ok || inst.SchoolID != schoolID {
		return instance.Instance{}, instance.ErrNotFound
	}
	if inst.IsActive() {
		at := archivedAt
		inst.Status = instance.StatusArchived
		inst.ArchivedAt = &at
		repo.db.table[id] = inst
	}
	return cloneInstance(inst), nil
}

func (repo *instanceRepository) DeleteInstance(_ context.Context, schoolID, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if inst, ok := repo.db.table[id]; !ok || inst.SchoolID != schoolID {
		return instance.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
