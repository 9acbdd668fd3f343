package grading

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
)

var (
	// errors
	ErrNotFound       = errors.New("grading scale not found")
	ErrNoGradingScale = errors.New("school has no default grading scale")
)

type (
	Repository interface {
		CreateScale(ctx context.Context, scale Scale, exec ...core.DBExecutor) (Scale, error)
		GetScale(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (Scale, error)
		// GetDefaultScale returns ErrNotFound if the school has no default scale.
		GetDefaultScale(ctx context.Context, schoolID string, exec ...core.DBExecutor) (Scale, error)
		QueryScales(ctx context.Context, schoolID string, exec ...core.DBExecutor) ([]Scale, error)
		// SetDefaultScale makes scale `id` the only default of its school.
		SetDefaultScale(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo   Repository
		tx     core.TxRunner
		logger core.Logger
	}
)

func NewService(repo Repository, tx core.TxRunner, logger core.Logger) *Service {
	return &Service{repo: repo, tx: tx, logger: logger}
}

func (svc *Service) Create(ctx context.Context, ns NewScale) (Scale, error) {
	now := core.NowFunc().UTC()
	scale := Scale{
		ID:        uuid.New().String(),
		SchoolID:  ns.SchoolID,
		Name:      ns.Name,
		Bands:     ns.Bands,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		created, err := svc.repo.CreateScale(ctx, scale, exec)
		if err != nil {
			return errors.Wrap(err, "creating grading scale")
		}
		if ns.IsDefault {
			if err = svc.repo.SetDefaultScale(ctx, created.SchoolID, created.ID, exec); err != nil {
				return errors.Wrap(err, "setting default grading scale")
			}
			created.IsDefault = true
		}
		scale = created
		return nil
	})
	if err != nil {
		return Scale{}, err
	}

	svc.logger.Info("grading.scale_created", core.LogFields{"school_id": scale.SchoolID, "scale_id": scale.ID})
	return scale, nil
}

func (svc *Service) Get(ctx context.Context, schoolID, id string) (Scale, error) {
	return svc.repo.GetScale(ctx, schoolID, id)
}

func (svc *Service) Query(ctx context.Context, schoolID string) ([]Scale, error) {
	return svc.repo.QueryScales(ctx, schoolID)
}

// GetDefault returns the school's default scale, or ErrNoGradingScale.
func (svc *Service) GetDefault(ctx context.Context, schoolID string) (Scale, error) {
	scale, err := svc.repo.GetDefaultScale(ctx, schoolID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Scale{}, ErrNoGradingScale
		}
		return Scale{}, errors.Wrap(err, "finding default grading scale")
	}
	return scale, nil
}

func (svc *Service) SetDefault(ctx context.Context, schoolID, id string) (Scale, error) {
	var scale Scale
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if _, err = svc.repo.GetScale(ctx, schoolID, id, exec); err != nil {
			return err
		}
		if err = svc.repo.SetDefaultScale(ctx, schoolID, id, exec); err != nil {
			return errors.Wrap(err, "setting default grading scale")
		}
		scale, err = svc.repo.GetScale(ctx, schoolID, id, exec)
		return err
	})
	return scale, err
}
