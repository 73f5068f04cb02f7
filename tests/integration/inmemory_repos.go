package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ephemeral-account-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[uuid.UUID]domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[a.ID]; exists {
		return false, nil
	}
	r.accounts[a.ID] = *a
	return true, nil
}

func (r *inMemoryAccountRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	copied := a
	return &copied, nil
}

func (r *inMemoryAccountRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	return r.Get(ctx, id)
}

func (r *inMemoryAccountRepo) Update(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[a.ID]; !ok {
		return fmt.Errorf("account not found")
	}
	r.accounts[a.ID] = *a
	return nil
}

// --- In-Memory Event Repo ---

type inMemoryEventRepo struct {
	mu     sync.RWMutex
	events map[uuid.UUID][]domain.AccountEvent
}

func newInMemoryEventRepo() *inMemoryEventRepo {
	return &inMemoryEventRepo{events: make(map[uuid.UUID][]domain.AccountEvent)}
}

func (r *inMemoryEventRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.AccountEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[e.AccountID] = append(r.events[e.AccountID], *e)
	return nil
}

func (r *inMemoryEventRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.AccountEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.AccountEvent, len(r.events[accountID]))
	copy(out, r.events[accountID])
	return out, nil
}

// --- In-Memory Client Repo ---

type inMemoryClientRepo struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*domain.APIClient
}

func newInMemoryClientRepo() *inMemoryClientRepo {
	return &inMemoryClientRepo{clients: make(map[uuid.UUID]*domain.APIClient)}
}

func (r *inMemoryClientRepo) Create(ctx context.Context, c *domain.APIClient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.clients {
		if existing.Username == c.Username {
			return fmt.Errorf("username already exists")
		}
	}
	r.clients[c.ID] = c
	return nil
}

func (r *inMemoryClientRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.APIClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, nil
	}
	return c, nil
}

func (r *inMemoryClientRepo) GetByAccessKey(ctx context.Context, accessKey string) (*domain.APIClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		if c.AccessKey == accessKey {
			return c, nil
		}
	}
	return nil, nil
}

func (r *inMemoryClientRepo) GetByUsername(ctx context.Context, username string) (*domain.APIClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		if c.Username == username {
			return c, nil
		}
	}
	return nil, nil
}

// --- Serializing Transactor ---

// serialTransactor emulates row-level locking by serializing whole
// transactions behind one mutex. Concurrent lifecycle calls against the same
// account therefore observe each other's committed state, the property the
// real implementation gets from SELECT ... FOR UPDATE.
type serialTransactor struct {
	mu sync.Mutex
}

func newSerialTransactor() *serialTransactor {
	return &serialTransactor{}
}

func (t *serialTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &serialTx{release: t.mu.Unlock}, nil
}

// serialTx is a no-op pgx.Tx that releases the transactor lock exactly once,
// on Commit or Rollback, whichever comes first.
type serialTx struct {
	release func()
	done    bool
}

func (t *serialTx) finish() {
	if !t.done {
		t.done = true
		t.release()
	}
}

func (t *serialTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *serialTx) Commit(ctx context.Context) error          { t.finish(); return nil }
func (t *serialTx) Rollback(ctx context.Context) error        { t.finish(); return nil }
func (t *serialTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *serialTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *serialTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *serialTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *serialTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *serialTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *serialTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *serialTx) Conn() *pgx.Conn { return nil }

// --- Test Clock ---

// testClock is a settable clock so expiry boundaries can be crossed without
// sleeping.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
