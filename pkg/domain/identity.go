// Package domain provides the typed identifiers shared across the registry.
package domain

import (
	"regexp"
	"strconv"
	"strings"

	dErrors "credreg/pkg/domain-errors"
)

// MaxIdentityLength bounds account identifiers accepted at trust boundaries.
const MaxIdentityLength = 128

var validIdentity = regexp.MustCompile(`^[A-Za-z0-9:._-]+$`)

// Identity is an account/address value in the hosting environment.
// Two identities are the same party iff their strings are equal.
type Identity string

// CredentialID is the registry-assigned credential identifier. Zero is never issued.
type CredentialID uint64

// ParseIdentity validates an identity at a trust boundary (handlers, CLI input).
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "identity cannot be empty")
	}
	if len(s) > MaxIdentityLength {
		return "", dErrors.New(dErrors.CodeBadRequest, "identity is too long")
	}
	if !validIdentity.MatchString(s) {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid identity format")
	}
	return Identity(s), nil
}

// ParseCredentialID parses a decimal credential ID. Zero parses; the registry
// never assigns it, so lookups of zero report not found.
func ParseCredentialID(s string) (CredentialID, error) {
	if strings.TrimSpace(s) == "" {
		return 0, dErrors.New(dErrors.CodeBadRequest, "credential ID cannot be empty")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid credential ID format")
	}
	return CredentialID(n), nil
}

func (id Identity) String() string     { return string(id) }
func (id CredentialID) String() string { return strconv.FormatUint(uint64(id), 10) }

func (id Identity) IsNil() bool     { return id == "" }
func (id CredentialID) IsNil() bool { return id == 0 }
