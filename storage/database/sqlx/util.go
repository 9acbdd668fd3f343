package sqlxrepos

import (
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
)

const (
	pqUniqueViolation     = "23505"
	pqInvalidTextRepr     = "22P02" // e.g. malformed uuid
	pqSerializationFailed = "40001"
)

type repository struct {
	db *sqlx.DB
}

// getExec returns the transaction passed by the service, or the database.
func (repo repository) getExec(svcExec []core.DBExecutor) (sqlx.ExtContext, error) {
	if len(svcExec) > 0 && svcExec[0] != nil {
		if ext, ok := svcExec[0].(sqlx.ExtContext); ok {
			return ext, nil
		}
		// a repository wired to the wrong transaction runner cannot serve any request
		return nil, core.NewShutdownError("executor does not support sqlx")
	}
	return repo.db, nil
}

// trapNoRowsErr maps psql "no rows" (and unparsable ids) to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == pqInvalidTextRepr {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// trapConflictErr maps unique violations and serialization failures to a retryable core.ConflictError.
func trapConflictErr(err error, msg string) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		switch pqErr.Code {
		case pqUniqueViolation, pqSerializationFailed:
			return core.NewConflictError(errors.Wrap(err, msg))
		}
	}
	return errors.Wrap(err, msg)
}

func checkAffected(res sql.Result, notFound error, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func toJSON(v interface{}) (types.JSONText, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding json column")
	}
	return types.JSONText(data), nil
}

func fromJSON(data types.JSONText, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return errors.Wrap(data.Unmarshal(v), "decoding json column")
}
