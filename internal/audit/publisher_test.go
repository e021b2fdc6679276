package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credreg/pkg/domain"
)

type failingStore struct {
	InMemoryStore
	err error
}

func (s *failingStore) Append(context.Context, Event) error { return s.err }

func TestPublisher_SyncEmit(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	require.NoError(t, pub.Emit(context.Background(), Event{
		Actor:        "GADMIN",
		Subject:      "GRECIPIENT",
		CredentialID: 1,
		Action:       ActionCredentialIssued,
		Decision:     DecisionGranted,
	}))

	events, err := store.ListByCredential(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotZero(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, domain.Identity("GRECIPIENT"), events[0].Subject)
}

func TestPublisher_KeepsProvidedTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, NewPublisher(store).Emit(context.Background(), Event{Timestamp: ts, CredentialID: 2}))

	events, _ := store.ListByCredential(context.Background(), 2)
	require.Len(t, events, 1)
	assert.Equal(t, ts, events[0].Timestamp)
}

func TestPublisher_SyncPropagatesStoreError(t *testing.T) {
	pub := NewPublisher(&failingStore{err: errors.New("disk full")})
	assert.Error(t, pub.Emit(context.Background(), Event{}))
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(8))

	for i := 1; i <= 5; i++ {
		require.NoError(t, pub.Emit(context.Background(), Event{CredentialID: domain.CredentialID(i), Action: ActionCredentialIssued}))
	}
	pub.Close()

	recent, err := store.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, recent, 5)
}

func TestPublisher_EmitAfterCloseFails(t *testing.T) {
	for _, tt := range []struct {
		name string
		opts []PublisherOption
	}{
		{"sync", nil},
		{"async", []PublisherOption{WithAsyncBuffer(4)}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			store := NewInMemoryStore()
			pub := NewPublisher(store, tt.opts...)
			pub.Close()
			pub.Close()

			require.NotPanics(t, func() {
				err := pub.Emit(context.Background(), Event{CredentialID: 1, Action: ActionCredentialIssued})
				assert.Error(t, err)
			})

			recent, err := store.ListRecent(context.Background(), 0)
			require.NoError(t, err)
			assert.Empty(t, recent)
		})
	}
}

func TestInMemoryStore_ListRecentNewestFirst(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Append(ctx, Event{CredentialID: domain.CredentialID(i)}))
	}

	recent, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, domain.CredentialID(3), recent[0].CredentialID)
	assert.Equal(t, domain.CredentialID(2), recent[1].CredentialID)
}
