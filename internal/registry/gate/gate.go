// Package gate decides whether a caller may perform a registry mutation.
//
// A caller first proves it controls the identity it claims (authentication),
// then must equal the registry admin (authorization). The gate never writes.
package gate

import (
	"context"
	"errors"

	"credreg/internal/registry/models"
	"credreg/pkg/domain"
	dErrors "credreg/pkg/domain-errors"
	"credreg/pkg/platform/sentinel"
)

// ProofVerifier returns the identity a proof authenticates.
type ProofVerifier interface {
	Verify(ctx context.Context, proof string) (domain.Identity, error)
}

// AdminSource reads the configured admin identity.
type AdminSource interface {
	Admin(ctx context.Context) (domain.Identity, error)
}

type Gate struct {
	verifier ProofVerifier
}

func New(verifier ProofVerifier) *Gate {
	return &Gate{verifier: verifier}
}

// Authenticate confirms caller.Proof authenticates caller.Identity.
// Failures carry CodeUnauthorized and no state is read.
func (g *Gate) Authenticate(ctx context.Context, caller models.Caller) error {
	if caller.Identity.IsNil() || caller.Proof == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity and proof are required")
	}
	proven, err := g.verifier.Verify(ctx, caller.Proof)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, "identity proof rejected")
	}
	if proven != caller.Identity {
		return dErrors.New(dErrors.CodeUnauthorized, "identity proof does not match caller")
	}
	return nil
}

// RequireAdmin authenticates caller and then authorizes it against admins.
func (g *Gate) RequireAdmin(ctx context.Context, admins AdminSource, caller models.Caller) error {
	if err := g.Authenticate(ctx, caller); err != nil {
		return err
	}
	return g.Authorize(ctx, admins, caller.Identity)
}

// Authorize checks an already authenticated identity is the admin read from
// admins. A registry with no admin rejects everyone with CodeForbidden.
func (g *Gate) Authorize(ctx context.Context, admins AdminSource, identity domain.Identity) error {
	admin, err := admins.Admin(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeForbidden, "registry has no admin")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read admin")
	}
	if identity != admin {
		return dErrors.New(dErrors.CodeForbidden, "caller is not the registry admin")
	}
	return nil
}
