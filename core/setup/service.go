package setup

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/instance"
	"github.com/trezcool/gradebook/core/results"
)

var (
	// errors
	ErrNotFound          = errors.New("setup session not found")
	errExamConfigMissing = errors.New("exam configuration step is not completed")
)

type (
	Repository interface {
		GetSession(ctx context.Context, schoolID string, exec ...core.DBExecutor) (Session, error)
		SaveSession(ctx context.Context, sess Session, exec ...core.DBExecutor) (Session, error)
		DeleteSession(ctx context.Context, schoolID string, exec ...core.DBExecutor) error
	}

	InstanceCreator interface {
		Create(ctx context.Context, ni instance.NewInstance) (instance.Instance, error)
	}

	Service struct {
		repo      Repository
		instances InstanceCreator
		validate  *validator.Validate
		logger    core.Logger
	}
)

func NewService(repo Repository, instances InstanceCreator, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{repo: repo, instances: instances, validate: validate, logger: logger}
}

// Get returns the school's session, or a fresh one when none was saved yet.
func (svc *Service) Get(ctx context.Context, schoolID string) (Session, error) {
	sess, err := svc.repo.GetSession(ctx, schoolID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return newSession(schoolID), nil
		}
		return Session{}, errors.Wrap(err, "finding setup session")
	}
	return sess, nil
}

func (svc *Service) SaveExamConfig(ctx context.Context, schoolID string, ec results.ExamConfig) (Session, error) {
	if err := ec.Validate(svc.validate); err != nil {
		return Session{}, err
	}
	return svc.update(ctx, schoolID, StepExamConfig, func(sess *Session) { sess.ExamConfig = &ec })
}

func (svc *Service) SaveAffectiveTraits(ctx context.Context, schoolID string, tl TraitList) (Session, error) {
	if err := tl.Validate(svc.validate); err != nil {
		return Session{}, err
	}
	return svc.update(ctx, schoolID, StepAffectiveTraits, func(sess *Session) { sess.Traits.AffectiveTraits = tl.Items })
}

func (svc *Service) SavePsychomotorSkills(ctx context.Context, schoolID string, tl TraitList) (Session, error) {
	if err := tl.Validate(svc.validate); err != nil {
		return Session{}, err
	}
	return svc.update(ctx, schoolID, StepPsychomotorSkills, func(sess *Session) { sess.Traits.PsychomotorSkills = tl.Items })
}

func (svc *Service) SaveSignOff(ctx context.Context, schoolID string, so SignOff) (Session, error) {
	if err := so.Validate(svc.validate); err != nil {
		return Session{}, err
	}
	return svc.update(ctx, schoolID, StepSignOff, func(sess *Session) { sess.SignOff = &so })
}

// Reset discards the school's session.
func (svc *Service) Reset(ctx context.Context, schoolID string) error {
	if err := svc.repo.DeleteSession(ctx, schoolID); err != nil && errors.Cause(err) != ErrNotFound {
		return errors.Wrap(err, "deleting setup session")
	}
	return nil
}

// Finalize freezes the session into the new active results instance of the requested scope.
func (svc *Service) Finalize(ctx context.Context, schoolID string, req FinalizeRequest) (instance.Instance, error) {
	sess, err := svc.Get(ctx, schoolID)
	if err != nil {
		return instance.Instance{}, err
	}
	if !sess.IsCompleted(StepExamConfig) || sess.ExamConfig == nil {
		return instance.Instance{}, core.NewValidationError(
			errExamConfigMissing,
			core.FieldError{Field: "exam_config", Error: errExamConfigMissing.Error()},
		)
	}

	ni := instance.NewInstance{
		Scope: results.Scope{
			SchoolID:  schoolID,
			ClassID:   req.ClassID,
			SessionID: req.SessionID,
			TermID:    req.TermID,
		},
		Name:       req.Name,
		Subjects:   req.Subjects,
		ExamConfig: *sess.ExamConfig,
		Traits:     sess.Traits,
	}
	if err = ni.Validate(svc.validate); err != nil {
		return instance.Instance{}, err
	}

	inst, err := svc.instances.Create(ctx, ni)
	if err != nil {
		return instance.Instance{}, err
	}
	svc.logger.Info("setup.finalized", core.LogFields{"school_id": schoolID, "instance_id": inst.ID})
	return inst, nil
}

func (svc *Service) update(ctx context.Context, schoolID string, step Step, apply func(sess *Session)) (Session, error) {
	sess, err := svc.Get(ctx, schoolID)
	if err != nil {
		return Session{}, err
	}
	apply(&sess)
	sess.complete(step)
	sess.UpdatedAt = core.NowFunc().UTC()

	sess, err = svc.repo.SaveSession(ctx, sess)
	if err != nil {
		return Session{}, errors.Wrap(err, "saving setup session")
	}
	return sess, nil
}
