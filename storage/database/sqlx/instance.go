package sqlxrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/instance"
	"github.com/trezcool/gradebook/core/results"
)

const instanceColumns = `id, school_id, class_id, session_id, term_id, name, version,
	subjects, exam_config, traits, source_file, status, created_at, archived_at`

const scopeWhere = "school_id = $1 AND class_id = $2 AND session_id = $3 AND term_id = $4"

type instanceRow struct {
	ID string `db:"id"`
	results.Scope
	Name       string         `db:"name"`
	Version    int            `db:"version"`
	Subjects   types.JSONText `db:"subjects"`
	ExamConfig types.JSONText `db:"exam_config"`
	Traits     types.JSONText `db:"traits"`
	SourceFile types.JSONText `db:"source_file"`
	Status     string         `db:"status"`
	CreatedAt  time.Time      `db:"created_at"`
	ArchivedAt null.Time      `db:"archived_at"`
}

func (r instanceRow) instance() (instance.Instance, error) {
	inst := instance.Instance{
		ID:        r.ID,
		Scope:     r.Scope,
		Name:      r.Name,
		Version:   r.Version,
		Status:    instance.Status(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.ArchivedAt.Valid {
		at := r.ArchivedAt.Time.UTC()
		inst.ArchivedAt = &at
	}
	if err := fromJSON(r.Subjects, &inst.Subjects); err != nil {
		return instance.Instance{}, err
	}
	if err := fromJSON(r.ExamConfig, &inst.ExamConfig); err != nil {
		return instance.Instance{}, err
	}
	if err := fromJSON(r.Traits, &inst.Traits); err != nil {
		return instance.Instance{}, err
	}
	// a NULL jsonb column scans as "null", which leaves SourceFile nil
	if err := fromJSON(r.SourceFile, &inst.SourceFile); err != nil {
		return instance.Instance{}, err
	}
	return inst, nil
}

type instanceRepository struct {
	repository
}

var _ instance.Repository = (*instanceRepository)(nil) // interface compliance check

func NewInstanceRepository(db *sqlx.DB) *instanceRepository {
	return &instanceRepository{repository{db: db}}
}

// withTx runs fn on the service's executor, or on a fresh transaction when there is none.
func (repo instanceRepository) withTx(ctx context.Context, exec []core.DBExecutor, fn func(ext sqlx.ExtContext) error) error {
	if len(exec) > 0 && exec[0] != nil {
		ext, err := repo.getExec(exec)
		if err != nil {
			return err
		}
		return fn(ext)
	}
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (repo instanceRepository) CreateActiveInstance(ctx context.Context, inst instance.Instance, archivedAt time.Time, exec ...core.DBExecutor) (instance.Instance, error) {
	subjects, err := toJSON(inst.Subjects)
	if err != nil {
		return instance.Instance{}, err
	}
	examConfig, err := toJSON(inst.ExamConfig)
	if err != nil {
		return instance.Instance{}, err
	}
	traits, err := toJSON(inst.Traits)
	if err != nil {
		return instance.Instance{}, err
	}
	sourceFile, err := toJSON(inst.SourceFile)
	if err != nil {
		return instance.Instance{}, err
	}
	scopeArgs := []interface{}{inst.SchoolID, inst.ClassID, inst.SessionID, inst.TermID}

	err = repo.withTx(ctx, exec, func(ext sqlx.ExtContext) error {
		_, err := ext.ExecContext(ctx,
			"UPDATE results_instance SET status = 'archived', archived_at = $5 WHERE "+scopeWhere+" AND status = 'active'",
			append(scopeArgs, archivedAt.UTC())...)
		if err != nil {
			return errors.Wrap(err, "archiving active results instance")
		}

		if err = sqlx.GetContext(ctx, ext, &inst.Version,
			"SELECT COALESCE(MAX(version), 0) + 1 FROM results_instance WHERE "+scopeWhere, scopeArgs...); err != nil {
			return errors.Wrap(err, "computing results instance version")
		}

		_, err = ext.ExecContext(ctx, `
			INSERT INTO results_instance (`+instanceColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULL)`,
			inst.ID, inst.SchoolID, inst.ClassID, inst.SessionID, inst.TermID, inst.Name, inst.Version,
			subjects, examConfig, traits, sourceFile, string(instance.StatusActive), inst.CreatedAt.UTC(),
		)
		return trapConflictErr(err, "inserting results instance")
	})
	if err != nil {
		return instance.Instance{}, err
	}
	inst.Status = instance.StatusActive
	inst.ArchivedAt = nil
	return inst, nil
}

func (repo instanceRepository) get(ctx context.Context, exec []core.DBExecutor, where string, args ...interface{}) (instance.Instance, error) {
	ext, err := repo.getExec(exec)
	if err != nil {
		return instance.Instance{}, err
	}
	var row instanceRow
	if err = sqlx.GetContext(ctx, ext, &row, "SELECT "+instanceColumns+" FROM results_instance WHERE "+where, args...); err != nil {
		return instance.Instance{}, trapNoRowsErr(err, instance.ErrNotFound, "finding results instance")
	}
	return row.instance()
}

func (repo instanceRepository) GetInstance(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (instance.Instance, error) {
	return repo.get(ctx, exec, "school_id = $1 AND id = $2", schoolID, id)
}

func (repo instanceRepository) GetActiveInstance(ctx context.Context, scope results.Scope, exec ...core.DBExecutor) (instance.Instance, error) {
	return repo.get(ctx, exec, scopeWhere+" AND status = 'active'",
		scope.SchoolID, scope.ClassID, scope.SessionID, scope.TermID)
}

func (repo instanceRepository) QueryInstances(ctx context.Context, filter instance.QueryFilter, exec ...core.DBExecutor) ([]instance.Instance, error) {
	ext, err := repo.getExec(exec)
	if err != nil {
		return nil, err
	}

	var (
		conds []string
		args  []interface{}
	)
	for _, f := range []struct {
		col, val string
	}{
		{"school_id", filter.SchoolID},
		{"class_id", filter.ClassID},
		{"session_id", filter.SessionID},
		{"term_id", filter.TermID},
		{"status", string(filter.Status)},
	} {
		if f.val == "" {
			continue
		}
		args = append(args, f.val)
		conds = append(conds, f.col+" = $"+strconv.Itoa(len(args)))
	}

	query := "SELECT " + instanceColumns + " FROM results_instance"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, version DESC"

	var rows []instanceRow
	if err = sqlx.SelectContext(ctx, ext, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying results instances")
	}
	instances := make([]instance.Instance, 0, len(rows))
	for _, r := range rows {
		inst, err := r.instance()
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

func (repo instanceRepository) ArchiveInstance(ctx context.Context, schoolID, id string, archivedAt time.Time, exec ...core.DBExecutor) (instance.Instance, error) {
	ext, err := repo.getExec(exec)
	if err != nil {
		return instance.Instance{}, err
	}
	_, err = ext.ExecContext(ctx,
		"UPDATE results_instance SET status = 'archived', archived_at = $3 WHERE school_id = $1 AND id = $2 AND status = 'active'",
		schoolID, id, archivedAt.UTC())
	if err != nil {
		return instance.Instance{}, trapNoRowsErr(err, instance.ErrNotFound, "archiving results instance")
	}
	return repo.GetInstance(ctx, schoolID, id, exec...)
}

func (repo instanceRepository) DeleteInstance(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) error {
	ext, err := repo.getExec(exec)
	if err != nil {
		return err
	}
	res, err := ext.ExecContext(ctx, "DELETE FROM results_instance WHERE school_id = $1 AND id = $2", schoolID, id)
	if err != nil {
		return trapNoRowsErr(err, instance.ErrNotFound, "deleting results instance")
	}
	return checkAffected(res, instance.ErrNotFound, "deleting results instance")
}
