package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/setup"
)

type sessionRow struct {
	SchoolID       string         `db:"school_id"`
	CurrentStep    string         `db:"current_step"`
	CompletedSteps types.JSONText `db:"completed_steps"`
	ExamConfig     types.JSONText `db:"exam_config"`
	Traits         types.JSONText `db:"traits"`
	SignOff        types.JSONText `db:"sign_off"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r sessionRow) session() (setup.Session, error) {
	sess := setup.Session{
		SchoolID:    r.SchoolID,
		CurrentStep: setup.Step(r.CurrentStep),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	for _, col := range []struct {
		data types.JSONText
		dest interface{}
	}{
		{r.CompletedSteps, &sess.CompletedSteps},
		{r.ExamConfig, &sess.ExamConfig},
		{r.Traits, &sess.Traits},
		{r.SignOff, &sess.SignOff},
	} {
		if err := fromJSON(col.data, col.dest); err != nil {
			return setup.Session{}, err
		}
	}
	if sess.CompletedSteps == nil {
		sess.CompletedSteps = []setup.Step{}
	}
	return sess, nil
}

type sessionRepository struct {
	repository
}

var _ setup.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) *sessionRepository {
	return &sessionRepository{repository{db: db}}
}

func (repo sessionRepository) GetSession(ctx context.Context, schoolID string, exec ...core.DBExecutor) (setup.Session, error) {
	ext, err := repo.getExec(exec)
	if err != nil {
		return setup.Session{}, err
	}
	var row sessionRow
	err = sqlx.GetContext(ctx, ext, &row, `
		SELECT school_id, current_step, completed_steps, exam_config, traits, sign_off, updated_at
		FROM results_setup_session WHERE school_id = $1`, schoolID)
	if err != nil {
		return setup.Session{}, trapNoRowsErr(err, setup.ErrNotFound, "finding setup session")
	}
	return row.session()
}

func (repo sessionRepository) SaveSession(ctx context.Context, sess setup.Session, exec ...core.DBExecutor) (setup.Session, error) {
	ext, err := repo.getExec(exec)
	if err != nil {
		return setup.Session{}, err
	}
	row := sessionRow{
		SchoolID:    sess.SchoolID,
		CurrentStep: string(sess.CurrentStep),
		UpdatedAt:   sess.UpdatedAt.UTC(),
	}
	if row.CompletedSteps, err = toJSON(sess.CompletedSteps); err != nil {
		return setup.Session{}, err
	}
	if row.ExamConfig, err = toJSON(sess.ExamConfig); err != nil {
		return setup.Session{}, err
	}
	if row.Traits, err = toJSON(sess.Traits); err != nil {
		return setup.Session{}, err
	}
	if row.SignOff, err = toJSON(sess.SignOff); err != nil {
		return setup.Session{}, err
	}

	query, args, err := sqlx.Named(`
		INSERT INTO results_setup_session (school_id, current_step, completed_steps, exam_config, traits, sign_off, updated_at)
		VALUES (:school_id, :current_step, :completed_steps, :exam_config, :traits, :sign_off, :updated_at)
		ON CONFLICT (school_id) DO UPDATE SET
			current_step = EXCLUDED.current_step,
			completed_steps = EXCLUDED.completed_steps,
			exam_config = EXCLUDED.exam_config,
			traits = EXCLUDED.traits,
			sign_off = EXCLUDED.sign_off,
			updated_at = EXCLUDED.updated_at`, row)
	if err != nil {
		return setup.Session{}, errors.Wrap(err, "binding setup session")
	}
	if _, err = ext.ExecContext(ctx, ext.Rebind(query), args...); err != nil {
		return setup.Session{}, errors.Wrap(err, "saving setup session")
	}
	return sess, nil
}

func (repo sessionRepository) DeleteSession(ctx context.Context, schoolID string, exec ...core.DBExecutor) error {
	ext, err := repo.getExec(exec)
	if err != nil {
		return err
	}
	res, err := ext.ExecContext(ctx, "DELETE FROM results_setup_session WHERE school_id = $1", schoolID)
	if err != nil {
		return errors.Wrap(err, "deleting setup session")
	}
	return checkAffected(res, setup.ErrNotFound, "deleting setup session")
}
