//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"credreg/pkg/domain"
	"credreg/pkg/platform/sentinel"
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
	s.store = NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Reset(context.Background()))
}

func (s *PostgresStoreSuite) TestContract() {
	runContract(s.T(), func(t *testing.T) Store {
		if err := s.postgres.Reset(context.Background()); err != nil {
			t.Fatalf("reset: %v", err)
		}
		return s.store
	})
}

// Row locking on registry_state means no increment is lost under contention.
func (s *PostgresStoreSuite) TestConcurrentIncrementsSerialize() {
	ctx := context.Background()
	res := testutil.RunConcurrent(20, func(int) (uint64, error) {
		var next uint64
		err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
			n, err := tx.CredentialCount(ctx)
			if err != nil {
				return err
			}
			next = n + 1
			if err := tx.SetCredentialCount(ctx, next); err != nil {
				return err
			}
			c := testutil.NewCredentialBuilder().WithID(domain.CredentialID(next)).Build()
			if err := tx.SaveCredential(ctx, c); err != nil {
				return err
			}
			return tx.AppendRecipientCredential(ctx, c.Recipient, c.ID)
		})
		return next, err
	})
	s.Require().Empty(res.Errors)
	s.Equal(20, res.Successes)

	n, err := s.store.CredentialCount(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(20), n)

	ids, err := s.store.RecipientCredentials(ctx, testutil.RecipientIdentity)
	s.Require().NoError(err)
	s.Len(ids, 20)
	for i, id := range ids {
		s.Equal(domain.CredentialID(i+1), id)
	}
}

func (s *PostgresStoreSuite) TestAdminUnsetAfterReset() {
	_, err := s.store.Admin(context.Background())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
