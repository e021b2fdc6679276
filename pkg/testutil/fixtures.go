package testutil

import (
	"time"

	"credreg/internal/registry/models"
	"credreg/pkg/domain"
)

// Identities used across registry tests.
const (
	AdminIdentity     domain.Identity = "GADMIN"
	RecipientIdentity domain.Identity = "GRECIPIENT"
	OtherIdentity     domain.Identity = "GOTHER"
)

// FixedTime is a deterministic completion date for fixtures.
var FixedTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// CredentialBuilder provides a fluent interface for building test credentials.
type CredentialBuilder struct {
	credential *models.Credential
}

// NewCredentialBuilder creates a builder with sensible defaults.
func NewCredentialBuilder() *CredentialBuilder {
	return &CredentialBuilder{
		credential: &models.Credential{
			ID:                1,
			Issuer:            AdminIdentity,
			Recipient:         RecipientIdentity,
			Title:             "Intro to Smart Contracts",
			Description:       "Completed every module and the final exam",
			CourseID:          "SC-101",
			CompletionDate:    FixedTime,
			DocumentReference: "ipfs://bafybeigdyrzt",
		},
	}
}

func (b *CredentialBuilder) WithID(id domain.CredentialID) *CredentialBuilder {
	b.credential.ID = id
	return b
}

func (b *CredentialBuilder) WithRecipient(r domain.Identity) *CredentialBuilder {
	b.credential.Recipient = r
	return b
}

func (b *CredentialBuilder) WithTitle(title string) *CredentialBuilder {
	b.credential.Title = title
	return b
}

func (b *CredentialBuilder) Revoked() *CredentialBuilder {
	b.credential.IsRevoked = true
	return b
}

// Build returns a copy so the builder can be reused.
func (b *CredentialBuilder) Build() *models.Credential {
	return b.credential.Clone()
}

// IssueRequest returns a valid issuance request from the admin to the recipient.
func IssueRequest(proof string) models.IssueRequest {
	return models.IssueRequest{
		Issuer:            models.Caller{Identity: AdminIdentity, Proof: proof},
		Recipient:         RecipientIdentity,
		Title:             "Intro to Smart Contracts",
		Description:       "Completed every module and the final exam",
		CourseID:          "SC-101",
		DocumentReference: "ipfs://bafybeigdyrzt",
	}
}
