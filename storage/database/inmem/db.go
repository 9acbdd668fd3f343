package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grading"
	"github.com/trezcool/gradebook/core/instance"
	"github.com/trezcool/gradebook/core/results"
	"github.com/trezcool/gradebook/core/setup"
)

type (
	// DB is an in-memory store. Stored rows are values, never shared with callers.
	DB struct {
		txMu sync.Mutex

		scale    *scaleTable
		result   *resultTable
		student  *studentTable
		instance *instanceTable
		session  *sessionTable
	}

	scaleTable struct {
		table map[string]grading.Scale
		mutex sync.RWMutex
	}

	resultTable struct {
		table map[resultKey]results.StudentResult
		mutex sync.RWMutex
	}

	studentTable struct {
		table map[string]results.Student
		mutex sync.RWMutex
	}

	instanceTable struct {
		table map[string]instance.Instance
		mutex sync.RWMutex
	}

	sessionTable struct {
		table map[string]setup.Session
		mutex sync.RWMutex
	}

	snapshot struct {
		scales    map[string]grading.Scale
		results   map[resultKey]results.StudentResult
		students  map[string]results.Student
		instances map[string]instance.Instance
		sessions  map[string]setup.Session
	}
)

var _ core.TxRunner = (*DB)(nil) // interface compliance check

func NewDB() *DB {
	return &DB{
		scale:    &scaleTable{table: make(map[string]grading.Scale)},
		result:   &resultTable{table: make(map[resultKey]results.StudentResult)},
		student:  &studentTable{table: make(map[string]results.Student)},
		instance: &instanceTable{table: make(map[string]instance.Instance)},
		session:  &sessionTable{table: make(map[string]setup.Session)},
	}
}

// RunInTx serializes transactions and restores every table if fn fails.
// Writes made outside RunInTx while a transaction runs may be lost on rollback.
func (db *DB) RunInTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snap := db.snapshot()
	if err := fn(nil); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

// Reset empties every table.
func (db *DB) Reset() {
	db.restore(snapshot{
		scales:    make(map[string]grading.Scale),
		results:   make(map[resultKey]results.StudentResult),
		students:  make(map[string]results.Student),
		instances: make(map[string]instance.Instance),
		sessions:  make(map[string]setup.Session),
	})
}

func (db *DB) snapshot() snapshot {
	var snap snapshot

	db.scale.mutex.RLock()
	snap.scales = make(map[string]grading.Scale, len(db.scale.table))
	for k, v := range db.scale.table {
		snap.scales[k] = v
	}
	db.scale.mutex.RUnlock()

	db.result.mutex.RLock()
	snap.results = make(map[resultKey]results.StudentResult, len(db.result.table))
	for k, v := range db.result.table {
		snap.results[k] = v
	}
	db.result.mutex.RUnlock()

	db.student.mutex.RLock()
	snap.students = make(map[string]results.Student, len(db.student.table))
	for k, v := range db.student.table {
		snap.students[k] = v
	}
	db.student.mutex.RUnlock()

	db.instance.mutex.RLock()
	snap.instances = make(map[string]instance.Instance, len(db.instance.table))
	for k, v := range db.instance.table {
		snap.instances[k] = v
	}
	db.instance.mutex.RUnlock()

	db.session.mutex.RLock()
	snap.sessions = make(map[string]setup.Session, len(db.session.table))
	for k, v := range db.session.table {
		snap.sessions[k] = v
	}
	db.session.mutex.RUnlock()

	return snap
}

func (db *DB) restore(snap snapshot) {
	db.scale.mutex.Lock()
	db.scale.table = snap.scales
	db.scale.mutex.Unlock()

	db.result.mutex.Lock()
	db.result.table = snap.results
	db.result.mutex.Unlock()

	db.student.mutex.Lock()
	db.student.table = snap.students
	db.student.mutex.Unlock()

	db.instance.mutex.Lock()
	db.instance.table = snap.instances
	db.instance.mutex.Unlock()

	db.session.mutex.Lock()
	db.session.table = snap.sessions
	db.session.mutex.Unlock()
}
