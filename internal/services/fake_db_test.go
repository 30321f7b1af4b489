package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/purplefaucet/purple-faucet/internal/db"
	"github.com/purplefaucet/purple-faucet/internal/db/model"
)

// memoryDB is an in-process db.DbInterface for unit tests.
type memoryDB struct {
	mu sync.Mutex

	state      *model.FaucetStateDocument
	locks      map[string]time.Time
	events     []model.FaucetEventDocument
	deposits   map[string]model.DepositDocument
	lastHeight uint64
	failWith   error
}

var _ db.DbInterface = (*memoryDB)(nil)

func newMemoryDB() *memoryDB {
	return &memoryDB{
		locks:    make(map[string]time.Time),
		deposits: make(map[string]model.DepositDocument),
	}
}

func (m *memoryDB) Ping(context.Context) error {
	return nil
}

func (m *memoryDB) GetFaucetState(context.Context) (*model.FaucetStateDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}
	if m.state == nil {
		return nil, &db.NotFoundError{Key: model.FaucetStateSingletonID, Message: "faucet state not found"}
	}
	doc := *m.state
	return &doc, nil
}

func (m *memoryDB) UpsertFaucetState(_ context.Context, state *model.FaucetStateDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	doc := *state
	m.state = &doc
	return nil
}

func (m *memoryDB) SaveRecipientLock(_ context.Context, recipient string, paidAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	m.locks[recipient] = paidAt
	return nil
}

func (m *memoryDB) GetRecipientLocks(context.Context) ([]model.RecipientLockDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var locks []model.RecipientLockDocument
	for recipient, paidAt := range m.locks {
		locks = append(locks, model.RecipientLockDocument{Recipient: recipient, PaidAt: paidAt})
	}
	return locks, nil
}

func (m *memoryDB) SaveEvent(_ context.Context, event *model.FaucetEventDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	m.events = append(m.events, *event)
	return nil
}

func (m *memoryDB) GetRecentEvents(_ context.Context, limit int64) ([]model.FaucetEventDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := append([]model.FaucetEventDocument(nil), m.events...)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if int64(len(events)) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (m *memoryDB) SaveDeposit(_ context.Context, deposit *model.DepositDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.deposits[deposit.TxHash]; ok {
		return &db.DuplicateKeyError{Key: deposit.TxHash, Message: "deposit already credited"}
	}
	m.deposits[deposit.TxHash] = *deposit
	return nil
}

func (m *memoryDB) GetLastProcessedHeight(context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHeight, nil
}

func (m *memoryDB) UpdateLastProcessedHeight(_ context.Context, height uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastHeight = height
	return nil
}

func (m *memoryDB) Events() []model.FaucetEventDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.FaucetEventDocument(nil), m.events...)
}
