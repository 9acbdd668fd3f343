// Package shared builds the dependencies both the API server and the admin CLI run on.
package shared

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grading"
	"github.com/trezcool/gradebook/core/instance"
	"github.com/trezcool/gradebook/core/results"
	"github.com/trezcool/gradebook/core/setup"
	locksvc "github.com/trezcool/gradebook/services/locker"
	logsvc "github.com/trezcool/gradebook/services/logger"
	"github.com/trezcool/gradebook/storage/database"
	inmemdb "github.com/trezcool/gradebook/storage/database/inmem"
	sqlxrepos "github.com/trezcool/gradebook/storage/database/sqlx"
)

const (
	EngineMemory   = "memory"
	EnginePostgres = "postgres"

	LockMemory = "memory"
	LockRedis  = "redis"
)

// Roster is the student store: the results engine reads it, the admin CLI seeds it.
type Roster interface {
	results.Roster
	AddStudent(ctx context.Context, s results.Student) (results.Student, error)
}

type Services struct {
	Conf       *core.Config
	Validate   *validator.Validate
	Translator ut.Translator

	Grading   *grading.Service
	Results   *results.Service
	Instances *instance.Service
	Setup     *setup.Service
	Roster    Roster

	db  *sqlx.DB
	rdb *redis.Client
}

// NewLogger returns a rollbar logger printing to stdout with prefix.
// Rollbar reporting is disabled in debug mode.
func NewLogger(prefix string, conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, prefix+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug && !conf.TestMode)
	return logger
}

// NewValidator returns a validator with every domain validation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	grading.InitValidators(validate, translator)
	results.InitValidators(validate, translator)
	return validate, translator
}

// NewServices opens the configured storage engine and scope locker, then builds every domain service.
func NewServices(ctx context.Context, conf *core.Config, logger, dbLogger core.Logger) (*Services, error) {
	validate, translator := NewValidator()
	svcs := &Services{Conf: conf, Validate: validate, Translator: translator}

	var (
		scaleRepo    grading.Repository
		resultRepo   results.Repository
		instanceRepo instance.Repository
		sessionRepo  setup.Repository
		tx           core.TxRunner
	)
	switch conf.Database.Engine {
	case EngineMemory:
		db := inmemdb.NewDB()
		scaleRepo = inmemdb.NewScaleRepository(db)
		resultRepo = inmemdb.NewResultRepository(db)
		instanceRepo = inmemdb.NewInstanceRepository(db)
		sessionRepo = inmemdb.NewSessionRepository(db)
		svcs.Roster = inmemdb.NewRoster(db)
		tx = db
		dbLogger.Info("database.opened", core.LogFields{"engine": EngineMemory})

	case EnginePostgres:
		db, err := setUpDB(conf)
		if err != nil {
			return nil, errors.Wrap(err, "setting up database")
		}
		svcs.db = db
		scaleRepo = sqlxrepos.NewScaleRepository(db)
		resultRepo = sqlxrepos.NewResultRepository(db)
		instanceRepo = sqlxrepos.NewInstanceRepository(db)
		sessionRepo = sqlxrepos.NewSessionRepository(db)
		svcs.Roster = sqlxrepos.NewRoster(db)
		tx = database.NewTxRunner(db)
		dbLogger.Info("database.opened", core.LogFields{"engine": EnginePostgres, "host": conf.Database.Address()})

	default:
		return nil, fmt.Errorf("unknown database engine %q", conf.Database.Engine)
	}

	var locker core.Locker
	switch conf.Import.LockBackend {
	case LockMemory, "":
		locker = locksvc.NewMemoryLocker()
	case LockRedis:
		rdb, err := locksvc.NewRedisClient(ctx, conf.Redis)
		if err != nil {
			_ = svcs.Close()
			return nil, errors.Wrap(err, "connecting to redis")
		}
		svcs.rdb = rdb
		locker = locksvc.NewRedisLocker(rdb, conf.Import.LockTTL, logger)
	default:
		_ = svcs.Close()
		return nil, fmt.Errorf("unknown lock backend %q", conf.Import.LockBackend)
	}

	svcs.Grading = grading.NewService(scaleRepo, tx, logger)
	svcs.Instances = instance.NewService(instanceRepo, logger)
	svcs.Results = results.NewService(results.ServiceDeps{
		Repo:           resultRepo,
		Roster:         svcs.Roster,
		Scales:         svcs.Grading,
		Tx:             tx,
		Locker:         locker,
		Logger:         logger,
		Validate:       validate,
		PlaceholderIDs: conf.Import.PlaceholderIDs,
	})
	svcs.Setup = setup.NewService(sessionRepo, svcs.Instances, validate, logger)
	return svcs, nil
}

// DB returns the postgres handle, nil for the memory engine.
func (svcs *Services) DB() *sqlx.DB {
	return svcs.db
}

// Close releases the database and redis connections.
func (svcs *Services) Close() error {
	var err error
	if svcs.rdb != nil {
		if rErr := svcs.rdb.Close(); rErr != nil {
			err = errors.Wrap(rErr, "closing redis client")
		}
	}
	if svcs.db != nil {
		if dErr := svcs.db.Close(); dErr != nil && err == nil {
			err = errors.Wrap(dErr, "closing database")
		}
	}
	return err
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
