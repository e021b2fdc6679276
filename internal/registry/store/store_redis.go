package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"credreg/internal/registry/models"
	"credreg/pkg/domain"
	"credreg/pkg/platform/sentinel"
)

const (
	countKey                   = "registry:count"
	adminKey                   = "registry:admin"
	credentialKeyPrefix        = "credential:"
	recipientCredentialsPrefix = "recipient_credentials:"
)

func credentialKey(id domain.CredentialID) string {
	return credentialKeyPrefix + id.String()
}

func recipientKey(recipient domain.Identity) string {
	return recipientCredentialsPrefix + recipient.String()
}

// credentialJSON is the stored representation of a Credential.
type credentialJSON struct {
	ID                uint64 `json:"id"`
	Issuer            string `json:"issuer"`
	Recipient         string `json:"recipient"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	CourseID          string `json:"course_id"`
	CompletionDate    int64  `json:"completion_date"` // Unix seconds
	DocumentReference string `json:"document_reference"`
	IsRevoked         bool   `json:"is_revoked"`
}

func credentialToJSON(c *models.Credential) ([]byte, error) {
	return json.Marshal(credentialJSON{
		ID:                uint64(c.ID),
		Issuer:            c.Issuer.String(),
		Recipient:         c.Recipient.String(),
		Title:             c.Title,
		Description:       c.Description,
		CourseID:          c.CourseID,
		CompletionDate:    c.CompletionDate.Unix(),
		DocumentReference: c.DocumentReference,
		IsRevoked:         c.IsRevoked,
	})
}

func credentialFromJSON(data []byte) (*models.Credential, error) {
	var j credentialJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal credential: %w", err)
	}
	return &models.Credential{
		ID:                domain.CredentialID(j.ID),
		Issuer:            domain.Identity(j.Issuer),
		Recipient:         domain.Identity(j.Recipient),
		Title:             j.Title,
		Description:       j.Description,
		CourseID:          j.CourseID,
		CompletionDate:    time.Unix(j.CompletionDate, 0).UTC(),
		DocumentReference: j.DocumentReference,
		IsRevoked:         j.IsRevoked,
	}, nil
}

// reader is the read surface shared by *redis.Client and *redis.Tx.
type reader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

func readCount(ctx context.Context, r reader) (uint64, error) {
	v, err := r.Get(ctx, countKey).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read credential count: %w", err)
	}
	return v, nil
}

func readCredential(ctx context.Context, r reader, id domain.CredentialID) (*models.Credential, error) {
	data, err := r.Get(ctx, credentialKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find credential by id: %w", err)
	}
	return credentialFromJSON(data)
}

func readRecipient(ctx context.Context, r reader, recipient domain.Identity) ([]domain.CredentialID, error) {
	vals, err := r.LRange(ctx, recipientKey(recipient), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("list recipient credentials: %w", err)
	}
	ids := make([]domain.CredentialID, 0, len(vals))
	for _, v := range vals {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse recipient credential id %q: %w", v, err)
		}
		ids = append(ids, domain.CredentialID(n))
	}
	return ids, nil
}

func readAdmin(ctx context.Context, r reader) (domain.Identity, error) {
	v, err := r.Get(ctx, adminKey).Result()
	if errors.Is(err, redis.Nil) || (err == nil && v == "") {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read admin: %w", err)
	}
	return domain.Identity(v), nil
}

// RedisStore persists registry state in Redis. Transactions use optimistic
// locking: WATCH on every key read, then MULTI/EXEC of the staged writes. A
// concurrent change makes EXEC fail and RunInTx return sentinel.ErrConflict.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed registry store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) CredentialCount(ctx context.Context) (uint64, error) {
	return readCount(ctx, s.client)
}

func (s *RedisStore) SetCredentialCount(ctx context.Context, n uint64) error {
	if err := s.client.Set(ctx, countKey, n, 0).Err(); err != nil {
		return fmt.Errorf("write credential count: %w", err)
	}
	return nil
}

func (s *RedisStore) FindCredential(ctx context.Context, id domain.CredentialID) (*models.Credential, error) {
	return readCredential(ctx, s.client, id)
}

func (s *RedisStore) SaveCredential(ctx context.Context, c *models.Credential) error {
	data, err := credentialToJSON(c)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	if err := s.client.Set(ctx, credentialKey(c.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *RedisStore) CredentialExists(ctx context.Context, id domain.CredentialID) (bool, error) {
	n, err := s.client.Exists(ctx, credentialKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("check credential exists: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) RecipientCredentials(ctx context.Context, recipient domain.Identity) ([]domain.CredentialID, error) {
	return readRecipient(ctx, s.client, recipient)
}

func (s *RedisStore) AppendRecipientCredential(ctx context.Context, recipient domain.Identity, id domain.CredentialID) error {
	if err := s.client.RPush(ctx, recipientKey(recipient), id.String()).Err(); err != nil {
		return fmt.Errorf("append recipient credential: %w", err)
	}
	return nil
}

func (s *RedisStore) Admin(ctx context.Context) (domain.Identity, error) {
	return readAdmin(ctx, s.client)
}

func (s *RedisStore) SetAdmin(ctx context.Context, admin domain.Identity) error {
	ok, err := s.client.SetNX(ctx, adminKey, admin.String(), 0).Result()
	if err != nil {
		return fmt.Errorf("write admin: %w", err)
	}
	if !ok {
		return sentinel.ErrAlreadySet
	}
	return nil
}

func (s *RedisStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		rtx := newRedisTx(tx)
		if err := fn(ctx, rtx); err != nil {
			return err
		}
		return rtx.commit(ctx)
	}, countKey, adminKey)
	if errors.Is(err, redis.TxFailedErr) {
		return sentinel.ErrConflict
	}
	return err
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// redisTx reads through the watched connection and stages writes until commit.
type redisTx struct {
	tx *redis.Tx

	count       *uint64
	admin       domain.Identity
	credentials map[domain.CredentialID]*models.Credential
	saveOrder   []domain.CredentialID
	appended    map[domain.Identity][]domain.CredentialID
	appendOrder []domain.Identity
}

func newRedisTx(tx *redis.Tx) *redisTx {
	return &redisTx{
		tx:          tx,
		credentials: make(map[domain.CredentialID]*models.Credential),
		appended:    make(map[domain.Identity][]domain.CredentialID),
	}
}

func (t *redisTx) watch(ctx context.Context, key string) error {
	if err := t.tx.Watch(ctx, key).Err(); err != nil {
		return fmt.Errorf("watch %s: %w", key, err)
	}
	return nil
}

func (t *redisTx) CredentialCount(ctx context.Context) (uint64, error) {
	if t.count != nil {
		return *t.count, nil
	}
	return readCount(ctx, t.tx)
}

func (t *redisTx) SetCredentialCount(_ context.Context, n uint64) error {
	t.count = &n
	return nil
}

func (t *redisTx) FindCredential(ctx context.Context, id domain.CredentialID) (*models.Credential, error) {
	if c, ok := t.credentials[id]; ok {
		return c.Clone(), nil
	}
	if err := t.watch(ctx, credentialKey(id)); err != nil {
		return nil, err
	}
	return readCredential(ctx, t.tx, id)
}

func (t *redisTx) SaveCredential(_ context.Context, c *models.Credential) error {
	if _, ok := t.credentials[c.ID]; !ok {
		t.saveOrder = append(t.saveOrder, c.ID)
	}
	t.credentials[c.ID] = c.Clone()
	return nil
}

func (t *redisTx) CredentialExists(ctx context.Context, id domain.CredentialID) (bool, error) {
	if _, ok := t.credentials[id]; ok {
		return true, nil
	}
	if err := t.watch(ctx, credentialKey(id)); err != nil {
		return false, err
	}
	n, err := t.tx.Exists(ctx, credentialKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("check credential exists: %w", err)
	}
	return n > 0, nil
}

func (t *redisTx) RecipientCredentials(ctx context.Context, recipient domain.Identity) ([]domain.CredentialID, error) {
	if err := t.watch(ctx, recipientKey(recipient)); err != nil {
		return nil, err
	}
	ids, err := readRecipient(ctx, t.tx, recipient)
	if err != nil {
		return nil, err
	}
	return append(ids, t.appended[recipient]...), nil
}

func (t *redisTx) AppendRecipientCredential(_ context.Context, recipient domain.Identity, id domain.CredentialID) error {
	if _, ok := t.appended[recipient]; !ok {
		t.appendOrder = append(t.appendOrder, recipient)
	}
	t.appended[recipient] = append(t.appended[recipient], id)
	return nil
}

func (t *redisTx) Admin(ctx context.Context) (domain.Identity, error) {
	if t.admin != "" {
		return t.admin, nil
	}
	return readAdmin(ctx, t.tx)
}

func (t *redisTx) SetAdmin(ctx context.Context, admin domain.Identity) error {
	if _, err := t.Admin(ctx); err == nil {
		return sentinel.ErrAlreadySet
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	t.admin = admin
	return nil
}

func (t *redisTx) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, t)
}

func (t *redisTx) Ping(ctx context.Context) error {
	return t.tx.Ping(ctx).Err()
}

func (t *redisTx) empty() bool {
	return t.count == nil && t.admin == "" && len(t.saveOrder) == 0 && len(t.appendOrder) == 0
}

func (t *redisTx) commit(ctx context.Context) error {
	if t.empty() {
		return nil
	}

	payloads := make(map[domain.CredentialID][]byte, len(t.saveOrder))
	for _, id := range t.saveOrder {
		data, err := credentialToJSON(t.credentials[id])
		if err != nil {
			return fmt.Errorf("marshal credential: %w", err)
		}
		payloads[id] = data
	}

	_, err := t.tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if t.count != nil {
			pipe.Set(ctx, countKey, *t.count, 0)
		}
		if t.admin != "" {
			pipe.Set(ctx, adminKey, t.admin.String(), 0)
		}
		for _, id := range t.saveOrder {
			pipe.Set(ctx, credentialKey(id), payloads[id], 0)
		}
		for _, recipient := range t.appendOrder {
			ids := t.appended[recipient]
			vals := make([]any, len(ids))
			for i, id := range ids {
				vals[i] = id.String()
			}
			pipe.RPush(ctx, recipientKey(recipient), vals...)
		}
		return nil
	})
	return err
}
