package tx

import (
	"context"
	"sync"
	"time"

	dErrors "startingline/pkg/domain-errors"
)

const defaultMemoryTxTimeout = 5 * time.Second

type journalKey struct{}

// journal records compensating actions for in-memory stores. Each store
// mutation is atomic on its own; rollback replays the undo log in reverse.
// Commit hooks run once the outermost unit commits.
type journal struct {
	mu       sync.Mutex
	root     *journal
	undo     []func()
	onCommit []func()
}

func newJournal(parent *journal) *journal {
	j := &journal{}
	j.root = j
	if parent != nil {
		j.root = parent.root
	}
	return j
}

func (j *journal) recordCommit(fn func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.onCommit = append(j.onCommit, fn)
}

func (j *journal) commit() {
	j.mu.Lock()
	hooks := j.onCommit
	j.onCommit = nil
	j.undo = nil
	j.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

func (j *journal) record(fn func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.undo = append(j.undo, fn)
}

// absorb moves a finished child's undo log into j so an outer rollback still
// reverts the child's writes.
func (j *journal) absorb(child *journal) {
	child.mu.Lock()
	undo, hooks := child.undo, child.onCommit
	child.undo, child.onCommit = nil, nil
	child.mu.Unlock()

	j.mu.Lock()
	defer j.mu.Unlock()
	j.undo = append(j.undo, undo...)
	j.onCommit = append(j.onCommit, hooks...)
}

func (j *journal) rollback() {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
	j.onCommit = nil
}

// RecordUndo registers a compensating action with the unit of work in ctx.
// Outside a unit of work the mutation is already final and nothing is recorded.
func RecordUndo(ctx context.Context, fn func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.record(fn)
	}
}

// RecordCommit registers fn to run after the unit of work in ctx commits.
// Hooks from a rolled back savepoint are discarded. Outside a unit of work fn
// runs immediately.
func RecordCommit(ctx context.Context, fn func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.recordCommit(fn)
		return
	}
	fn()
}

// Unit identifies the outermost unit of work in ctx, or nil outside one.
// Stores use it to keep uncommitted rows visible only to their writer.
func Unit(ctx context.Context) any {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		return j.root
	}
	return nil
}

// MemoryManager is the in-memory Manager. It gives all-or-nothing semantics
// for stores that call RecordUndo.
type MemoryManager struct {
	timeout time.Duration
}

// MemoryOption configures a MemoryManager.
type MemoryOption func(*MemoryManager)

// WithMemoryTimeout overrides the default unit-of-work timeout.
func WithMemoryTimeout(d time.Duration) MemoryOption {
	return func(m *MemoryManager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func NewMemoryManager(opts ...MemoryOption) *MemoryManager {
	m := &MemoryManager{timeout: defaultMemoryTxTimeout}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		// Already inside a unit of work: join it.
		return fn(ctx)
	}

	j := newJournal(nil)
	txCtx := context.WithValue(ctx, journalKey{}, j)

	if err := fn(txCtx); err != nil {
		j.rollback()
		if ctx.Err() != nil {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction not acknowledged")
		}
		return err
	}
	// The commit point: a unit that outlived its deadline is not acknowledged.
	if err := ctx.Err(); err != nil {
		j.rollback()
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction commit not acknowledged")
	}
	j.commit()
	return nil
}

func (m *MemoryManager) RunInSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	parent, ok := ctx.Value(journalKey{}).(*journal)
	if !ok {
		return m.RunInTx(ctx, fn)
	}
	child := newJournal(parent)
	if err := fn(context.WithValue(ctx, journalKey{}, child)); err != nil {
		child.rollback()
		return err
	}
	parent.absorb(child)
	return nil
}
