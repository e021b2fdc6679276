// Package store persists registry state: the credential counter, credentials
// by ID, the per-recipient index, and the admin identity.
//
// Implementations return sentinel errors (ErrNotFound, ErrAlreadySet,
// ErrConflict) and leave translation into domain errors to the service.
package store

import (
	"context"

	"credreg/internal/registry/models"
	"credreg/pkg/domain"
)

// Store is the registry's persistence port.
type Store interface {
	// CredentialCount returns the number of credentials issued, 0 when unset.
	CredentialCount(ctx context.Context) (uint64, error)
	SetCredentialCount(ctx context.Context, n uint64) error

	// FindCredential returns sentinel.ErrNotFound when id was never issued.
	FindCredential(ctx context.Context, id domain.CredentialID) (*models.Credential, error)
	// SaveCredential inserts or replaces the record under credential.ID.
	SaveCredential(ctx context.Context, credential *models.Credential) error
	CredentialExists(ctx context.Context, id domain.CredentialID) (bool, error)

	// RecipientCredentials returns IDs in issuance order, never nil.
	RecipientCredentials(ctx context.Context, recipient domain.Identity) ([]domain.CredentialID, error)
	AppendRecipientCredential(ctx context.Context, recipient domain.Identity, id domain.CredentialID) error

	// Admin returns sentinel.ErrNotFound before initialization.
	Admin(ctx context.Context) (domain.Identity, error)
	// SetAdmin returns sentinel.ErrAlreadySet if an admin exists.
	SetAdmin(ctx context.Context, admin domain.Identity) error

	// RunInTx runs fn against a transactional view of the store. Writes made
	// through that view commit together when fn returns nil and are discarded
	// otherwise. Calling RunInTx on the view runs fn in the same transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	Ping(ctx context.Context) error
}
