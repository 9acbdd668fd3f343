package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grading"
)

const scaleColumns = "id, school_id, name, is_default, bands, created_at, updated_at"

type scaleRow struct {
	ID        string         `db:"id"`
	SchoolID  string         `db:"school_id"`
	Name      string         `db:"name"`
	IsDefault bool           `db:"is_default"`
	Bands     types.JSONText `db:"bands"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r scaleRow) scale() (grading.Scale, error) {
	s := grading.Scale{
		ID:        r.ID,
		SchoolID:  r.SchoolID,
		Name:      r.Name,
		IsDefault: r.IsDefault,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	err := fromJSON(r.Bands, &s.Bands)
	return s, err
}

type scaleRepository struct {
	repository
}

var _ grading.Repository = (*scaleRepository)(nil) // interface compliance check

func NewScaleRepository(db *sqlx.DB) *scaleRepository {
	return &scaleRepository{repository{db: db}}
}

func (repo scaleRepository) CreateScale(ctx context.Context, scale grading.Scale, exec ...core.DBExecutor) (grading.Scale, error) {
	ext, err := repo.getExec(exec)
	if err != nil {
		return grading.Scale{}, err
	}
	bands, err := toJSON(scale.Bands)
	if err != nil {
		return grading.Scale{}, err
	}

	_, err = ext.ExecContext(ctx,
		`INSERT INTO grading_scale (id, school_id, name, is_default, bands, created_at, updated_at)
		VALUES ($1, $2, $3, false, $4, $5, $6)`,
		scale.ID, scale.SchoolID, scale.Name, bands, scale.CreatedAt, scale.UpdatedAt,
	)
	if err != nil {
		return grading.Scale{}, errors.Wrap(err, "inserting grading scale")
	}
	scale.IsDefault = false
	return scale, nil
}

func (repo scaleRepository) get(ctx context.Context, exec []core.DBExecutor, where string, args ...interface{}) (grading.Scale, error) {
	ext, err := repo.getExec(exec)
	if err != nil {
		return grading.Scale{}, err
	}
	var row scaleRow
	if err = sqlx.GetContext(ctx, ext, &row, "SELECT "+scaleColumns+" FROM grading_scale WHERE "+where, args...); err != nil {
		return grading.Scale{}, trapNoRowsErr(err, grading.ErrNotFound, "finding grading scale")
	}
	return row.scale()
}

func (repo scaleRepository) GetScale(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (grading.Scale, error) {
	return repo.get(ctx, exec, "school_id = $1 AND id = $2", schoolID, id)
}

func (repo scaleRepository) GetDefaultScale(ctx context.Context, schoolID string, exec ...core.DBExecutor) (grading.Scale, error) {
	return repo.get(ctx, exec, "school_id = $1 AND is_default", schoolID)
}

func (repo scaleRepository) QueryScales(ctx context.Context, schoolID string, exec ...core.DBExecutor) ([]grading.Scale, error) {
	ext, err := repo.getExec(exec)
	if err != nil {
		return nil, err
	}
	var rows []scaleRow
	err = sqlx.SelectContext(ctx, ext, &rows,
		"SELECT "+scaleColumns+" FROM grading_scale WHERE school_id = $1 ORDER BY created_at", schoolID)
	if err != nil {
		return nil, errors.Wrap(err, "querying grading scales")
	}

	scales := make([]grading.Scale, 0, len(rows))
	for _, r := range rows {
		s, err := r.scale()
		if err != nil {
			return nil, err
		}
		scales = append(scales, s)
	}
	return scales, nil
}

func (repo scaleRepository) SetDefaultScale(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) error {
	ext, err := repo.getExec(exec)
	if err != nil {
		return err
	}
	now := core.NowFunc().UTC()

	// clear first: the partial unique index allows a single default per school
	_, err = ext.ExecContext(ctx,
		"UPDATE grading_scale SET is_default = false, updated_at = $3 WHERE school_id = $1 AND is_default AND id <> $2",
		schoolID, id, now)
	if err != nil {
		return errors.Wrap(err, "clearing default grading scale")
	}
	res, err := ext.ExecContext(ctx,
		"UPDATE grading_scale SET is_default = true, updated_at = $3 WHERE school_id = $1 AND id = $2",
		schoolID, id, now)
	if err != nil {
		return trapConflictErr(err, "setting default grading scale")
	}
	return checkAffected(res, grading.ErrNotFound, "setting default grading scale")
}
