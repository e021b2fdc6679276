package gate_test

//go:generate mockgen -source=gate.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"credreg/internal/registry/gate"
	"credreg/internal/registry/gate/mocks"
	"credreg/internal/registry/models"
	"credreg/pkg/domain"
	dErrors "credreg/pkg/domain-errors"
	"credreg/pkg/platform/sentinel"
)

type GateSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	verifier *mocks.MockProofVerifier
	admins   *mocks.MockAdminSource
	gate     *gate.Gate
	ctx      context.Context
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.verifier = mocks.NewMockProofVerifier(s.ctrl)
	s.admins = mocks.NewMockAdminSource(s.ctrl)
	s.gate = gate.New(s.verifier)
	s.ctx = context.Background()
}

func (s *GateSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *GateSuite) TestAdminWithValidProofPasses() {
	s.verifier.EXPECT().Verify(gomock.Any(), "proof-admin").Return(domain.Identity("GADMIN"), nil)
	s.admins.EXPECT().Admin(gomock.Any()).Return(domain.Identity("GADMIN"), nil)

	err := s.gate.RequireAdmin(s.ctx, s.admins, models.Caller{Identity: "GADMIN", Proof: "proof-admin"})
	s.NoError(err)
}

func (s *GateSuite) TestUnauthenticatedReadsNoState() {
	s.Run("missing proof", func() {
		err := s.gate.RequireAdmin(s.ctx, s.admins, models.Caller{Identity: "GADMIN"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
	s.Run("missing identity", func() {
		err := s.gate.RequireAdmin(s.ctx, s.admins, models.Caller{Proof: "p"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
	s.Run("verifier rejects", func() {
		s.verifier.EXPECT().Verify(gomock.Any(), "forged").Return(domain.Identity(""), errors.New("bad signature"))
		err := s.gate.RequireAdmin(s.ctx, s.admins, models.Caller{Identity: "GADMIN", Proof: "forged"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
	s.Run("proof for another identity", func() {
		s.verifier.EXPECT().Verify(gomock.Any(), "proof-other").Return(domain.Identity("GOTHER"), nil)
		err := s.gate.RequireAdmin(s.ctx, s.admins, models.Caller{Identity: "GADMIN", Proof: "proof-other"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
	// no Admin() expectation: gomock fails the test if state was read
}

func (s *GateSuite) TestNonAdminIsForbidden() {
	s.verifier.EXPECT().Verify(gomock.Any(), "proof-other").Return(domain.Identity("GOTHER"), nil)
	s.admins.EXPECT().Admin(gomock.Any()).Return(domain.Identity("GADMIN"), nil)

	err := s.gate.RequireAdmin(s.ctx, s.admins, models.Caller{Identity: "GOTHER", Proof: "proof-other"})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *GateSuite) TestUninitializedRegistryForbidsEveryone() {
	s.verifier.EXPECT().Verify(gomock.Any(), "proof-admin").Return(domain.Identity("GADMIN"), nil)
	s.admins.EXPECT().Admin(gomock.Any()).Return(domain.Identity(""), sentinel.ErrNotFound)

	err := s.gate.RequireAdmin(s.ctx, s.admins, models.Caller{Identity: "GADMIN", Proof: "proof-admin"})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *GateSuite) TestAdminReadFailureIsInternal() {
	s.verifier.EXPECT().Verify(gomock.Any(), "proof-admin").Return(domain.Identity("GADMIN"), nil)
	s.admins.EXPECT().Admin(gomock.Any()).Return(domain.Identity(""), errors.New("connection reset"))

	err := s.gate.RequireAdmin(s.ctx, s.admins, models.Caller{Identity: "GADMIN", Proof: "proof-admin"})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
