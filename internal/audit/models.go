package audit

import (
	"time"

	"github.com/google/uuid"

	"credreg/pkg/domain"
)

// Event is emitted from the registry lifecycle to record who did what to which
// credential. Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID           uuid.UUID
	Timestamp    time.Time
	Actor        domain.Identity
	Subject      domain.Identity
	CredentialID domain.CredentialID
	Action       Action
	Decision     string
	Reason       string
	RequestID    string
}

type Action string

const (
	ActionRegistryInitialized Action = "registry_initialized"
	ActionCredentialIssued    Action = "credential_issued"
	ActionCredentialRevoked   Action = "credential_revoked"
	ActionMutationDenied      Action = "mutation_denied"
)

const (
	DecisionGranted = "granted"
	DecisionDenied  = "denied"
)
