package inmemdb

import (
	"context"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/results"
	"github.com/trezcool/gradebook/core/setup"
)

type sessionRepository struct {
	db *sessionTable
}

var _ setup.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *DB) setup.Repository {
	return &sessionRepository{db: db.session}
}

func cloneSession(sess setup.Session) setup.Session {
	sess.CompletedSteps = append([]setup.Step{}, sess.CompletedSteps...)
	sess.Traits.AffectiveTraits = append([]string{}, sess.Traits.AffectiveTraits...)
	sess.Traits.PsychomotorSkills = append([]string{}, sess.Traits.PsychomotorSkills...)
	if sess.ExamConfig != nil {
		ec := results.ExamConfig{Components: append([]results.Component(nil), sess.ExamConfig.Components...)}
		sess.ExamConfig = &ec
	}
	if sess.SignOff != nil {
		so := *sess.SignOff
		sess.SignOff = &so
	}
	return sess
}

func (repo *sessionRepository) GetSession(_ context.Context, schoolID string, _ ...core.DBExecutor) (setup.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sess, ok := repo.db.table[schoolID]; ok {
		return cloneSession(sess), nil
	}
	return setup.Session{}, setup.ErrNotFound
}

func (repo *sessionRepository) SaveSession(_ context.Context, sess setup.Session, _ ...core.DBExecutor) (setup.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[sess.SchoolID] = cloneSession(sess)
	return cloneSession(sess), nil
}

func (repo *sessionRepository) DeleteSession(_ context.Context, schoolID string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[schoolID]; !ok {
		return setup.ErrNotFound
	}
	delete(repo.db.table, schoolID)
	return nil
}
