//go:build integration

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"credreg/pkg/domain"
	"credreg/pkg/testutil"
	"credreg/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Reset(context.Background()))
}

func (s *PostgresStoreSuite) event(id uint64, action Action) Event {
	return Event{
		ID:           uuid.New(),
		Timestamp:    testutil.FixedTime,
		Actor:        testutil.AdminIdentity,
		Subject:      testutil.RecipientIdentity,
		CredentialID: domain.CredentialID(id),
		Action:       action,
		Decision:     DecisionGranted,
		RequestID:    "req-1",
	}
}

func (s *PostgresStoreSuite) TestListByCredentialInAppendOrder() {
	ctx := context.Background()
	issued := s.event(1, ActionCredentialIssued)
	revoked := s.event(1, ActionCredentialRevoked)
	other := s.event(2, ActionCredentialIssued)
	for _, e := range []Event{issued, other, revoked} {
		s.Require().NoError(s.store.Append(ctx, e))
	}

	events, err := s.store.ListByCredential(ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(issued.ID, events[0].ID)
	s.Equal(ActionCredentialRevoked, events[1].Action)
	s.Equal(testutil.AdminIdentity, events[0].Actor)
	s.True(testutil.FixedTime.Equal(events[0].Timestamp))
}

func (s *PostgresStoreSuite) TestAppendIsIdempotentPerEventID() {
	ctx := context.Background()
	e := s.event(3, ActionCredentialIssued)
	s.Require().NoError(s.store.Append(ctx, e))
	s.Require().NoError(s.store.Append(ctx, e))

	events, err := s.store.ListByCredential(ctx, 3)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *PostgresStoreSuite) TestListRecentNewestFirst() {
	ctx := context.Background()
	for i := uint64(1); i <= 3; i++ {
		e := s.event(i, ActionCredentialIssued)
		e.Timestamp = testutil.FixedTime.Add(time.Duration(i) * time.Second)
		s.Require().NoError(s.store.Append(ctx, e))
	}

	events, err := s.store.ListRecent(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.EqualValues(3, events[0].CredentialID)
	s.EqualValues(2, events[1].CredentialID)

	all, err := s.store.ListRecent(ctx, 0)
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *PostgresStoreSuite) TestEmptyListIsNotNil() {
	events, err := s.store.ListByCredential(context.Background(), 404)
	s.Require().NoError(err)
	s.NotNil(events)
	s.Empty(events)
}
