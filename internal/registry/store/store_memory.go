package store

import (
	"context"
	"sync"

	"credreg/internal/registry/models"
	"credreg/pkg/domain"
	"credreg/pkg/platform/sentinel"
)

type memState struct {
	count       uint64
	admin       domain.Identity
	credentials map[domain.CredentialID]*models.Credential
	recipients  map[domain.Identity][]domain.CredentialID
}

// InMemoryStore keeps registry state in maps. RunInTx holds the write lock
// for the whole callback, which totally orders mutations.
type InMemoryStore struct {
	mu    sync.RWMutex
	state memState
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		state: memState{
			credentials: make(map[domain.CredentialID]*models.Credential),
			recipients:  make(map[domain.Identity][]domain.CredentialID),
		},
	}
}

func (s *InMemoryStore) CredentialCount(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.count, nil
}

func (s *InMemoryStore) SetCredentialCount(_ context.Context, n uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.count = n
	return nil
}

func (s *InMemoryStore) FindCredential(_ context.Context, id domain.CredentialID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.credentials[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *InMemoryStore) SaveCredential(_ context.Context, credential *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.credentials[credential.ID] = credential.Clone()
	return nil
}

func (s *InMemoryStore) CredentialExists(_ context.Context, id domain.CredentialID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.state.credentials[id]
	return ok, nil
}

func (s *InMemoryStore) RecipientCredentials(_ context.Context, recipient domain.Identity) ([]domain.CredentialID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.CredentialID{}, s.state.recipients[recipient]...), nil
}

func (s *InMemoryStore) AppendRecipientCredential(_ context.Context, recipient domain.Identity, id domain.CredentialID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.recipients[recipient] = append(s.state.recipients[recipient], id)
	return nil
}

func (s *InMemoryStore) Admin(_ context.Context) (domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.admin == "" {
		return "", sentinel.ErrNotFound
	}
	return s.state.admin, nil
}

func (s *InMemoryStore) SetAdmin(_ context.Context, admin domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.admin != "" {
		return sentinel.ErrAlreadySet
	}
	s.state.admin = admin
	return nil
}

func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newMemTx(&s.state)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.apply()
	return nil
}

func (s *InMemoryStore) Ping(context.Context) error {
	return nil
}

// memTx stages writes over the committed state. The owning store's write lock
// is held for its whole lifetime, so it reads base without locking.
type memTx struct {
	base        *memState
	count       *uint64
	admin       domain.Identity
	credentials map[domain.CredentialID]*models.Credential
	appended    map[domain.Identity][]domain.CredentialID
}

func newMemTx(base *memState) *memTx {
	return &memTx{
		base:        base,
		credentials: make(map[domain.CredentialID]*models.Credential),
		appended:    make(map[domain.Identity][]domain.CredentialID),
	}
}

func (t *memTx) apply() {
	if t.count != nil {
		t.base.count = *t.count
	}
	if t.admin != "" {
		t.base.admin = t.admin
	}
	for id, c := range t.credentials {
		t.base.credentials[id] = c
	}
	for r, ids := range t.appended {
		t.base.recipients[r] = append(t.base.recipients[r], ids...)
	}
}

func (t *memTx) CredentialCount(context.Context) (uint64, error) {
	if t.count != nil {
		return *t.count, nil
	}
	return t.base.count, nil
}

func (t *memTx) SetCredentialCount(_ context.Context, n uint64) error {
	t.count = &n
	return nil
}

func (t *memTx) FindCredential(_ context.Context, id domain.CredentialID) (*models.Credential, error) {
	if c, ok := t.credentials[id]; ok {
		return c.Clone(), nil
	}
	if c, ok := t.base.credentials[id]; ok {
		return c.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (t *memTx) SaveCredential(_ context.Context, credential *models.Credential) error {
	t.credentials[credential.ID] = credential.Clone()
	return nil
}

func (t *memTx) CredentialExists(ctx context.Context, id domain.CredentialID) (bool, error) {
	_, err := t.FindCredential(ctx, id)
	return err == nil, nil
}

func (t *memTx) RecipientCredentials(_ context.Context, recipient domain.Identity) ([]domain.CredentialID, error) {
	out := append([]domain.CredentialID{}, t.base.recipients[recipient]...)
	return append(out, t.appended[recipient]...), nil
}

func (t *memTx) AppendRecipientCredential(_ context.Context, recipient domain.Identity, id domain.CredentialID) error {
	t.appended[recipient] = append(t.appended[recipient], id)
	return nil
}

func (t *memTx) Admin(context.Context) (domain.Identity, error) {
	if t.admin != "" {
		return t.admin, nil
	}
	if t.base.admin != "" {
		return t.base.admin, nil
	}
	return "", sentinel.ErrNotFound
}

func (t *memTx) SetAdmin(ctx context.Context, admin domain.Identity) error {
	if _, err := t.Admin(ctx); err == nil {
		return sentinel.ErrAlreadySet
	}
	t.admin = admin
	return nil
}

func (t *memTx) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, t)
}

func (t *memTx) Ping(context.Context) error {
	return nil
}
