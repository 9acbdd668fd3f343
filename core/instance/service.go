package instance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/results"
)

var (
	// errors
	ErrNotFound = errors.New("results instance not found")
)

type (
	Repository interface {
		// CreateActiveInstance archives the active instance of inst's scope (if any) at archivedAt and
		// inserts inst as active with the next version number, in a single atomic write.
		// A concurrent creation for the same scope yields a core.ConflictError.
		CreateActiveInstance(ctx context.Context, inst Instance, archivedAt time.Time, exec ...core.DBExecutor) (Instance, error)
		GetInstance(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (Instance, error)
		GetActiveInstance(ctx context.Context, scope results.Scope, exec ...core.DBExecutor) (Instance, error)
		QueryInstances(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Instance, error)
		// ArchiveInstance is a no-op on an archived instance.
		ArchiveInstance(ctx context.Context, schoolID, id string, archivedAt time.Time, exec ...core.DBExecutor) (Instance, error)
		DeleteInstance(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create stores ni as the active instance of its scope; the previous active instance gets archived.
func (svc *Service) Create(ctx context.Context, ni NewInstance) (Instance, error) {
	now := core.NowFunc().UTC()
	inst := Instance{
		ID:         uuid.New().String(),
		Scope:      ni.Scope,
		Name:       ni.Name,
		Subjects:   ni.Subjects,
		ExamConfig: ni.ExamConfig,
		Traits:     ni.Traits,
		SourceFile: ni.SourceFile,
		Status:     StatusActive,
		CreatedAt:  now,
	}
	if inst.Traits.AffectiveTraits == nil {
		inst.Traits.AffectiveTraits = []string{}
	}
	if inst.Traits.PsychomotorSkills == nil {
		inst.Traits.PsychomotorSkills = []string{}
	}

	created, err := svc.repo.CreateActiveInstance(ctx, inst, now)
	if err != nil {
		if core.IsConflict(err) {
			return Instance{}, err
		}
		return Instance{}, errors.Wrap(err, "creating results instance")
	}

	fields := created.Scope.LogFields()
	fields["instance_id"] = created.ID
	fields["version"] = created.Version
	svc.logger.Info("instance.created", fields)
	return created, nil
}

func (svc *Service) Get(ctx context.Context, schoolID, id string) (Instance, error) {
	return svc.repo.GetInstance(ctx, schoolID, id)
}

// GetActive returns ErrNotFound when the scope has no active instance.
func (svc *Service) GetActive(ctx context.Context, scope results.Scope) (Instance, error) {
	return svc.repo.GetActiveInstance(ctx, scope)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Instance, error) {
	return svc.repo.QueryInstances(ctx, filter)
}

func (svc *Service) Archive(ctx context.Context, schoolID, id string) (Instance, error) {
	inst, err := svc.repo.ArchiveInstance(ctx, schoolID, id, core.NowFunc().UTC())
	if err != nil {
		return Instance{}, err
	}
	svc.logger.Info("instance.archived", core.LogFields{"school_id": schoolID, "instance_id": id})
	return inst, nil
}

// Delete permanently removes an instance, whatever its status.
func (svc *Service) Delete(ctx context.Context, schoolID, id string) error {
	if err := svc.repo.DeleteInstance(ctx, schoolID, id); err != nil {
		return err
	}
	svc.logger.Info("instance.deleted", core.LogFields{"school_id": schoolID, "instance_id": id})
	return nil
}
