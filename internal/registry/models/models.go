package models

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"

	"credreg/pkg/domain"
)

// Credential is an issued completion record. Every field except IsRevoked is
// fixed at issuance.
type Credential struct {
	ID                domain.CredentialID `json:"id"`
	Issuer            domain.Identity     `json:"issuer"`
	Recipient         domain.Identity     `json:"recipient"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	CourseID          string              `json:"course_id"`
	CompletionDate    time.Time           `json:"completion_date"`
	DocumentReference string              `json:"document_reference"`
	IsRevoked         bool                `json:"is_revoked"`
}

// Digest returns the hex SHA3-256 of the immutable fields. Revocation does not
// change it, so a verifier can compare a presented copy with the registry's.
func (c *Credential) Digest() string {
	h := sha3.New256()
	var buf [8]byte
	writeUint := func(v uint64) {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	writeField := func(s string) {
		writeUint(uint64(len(s)))
		h.Write([]byte(s))
	}

	writeUint(uint64(c.ID))
	writeField(string(c.Issuer))
	writeField(string(c.Recipient))
	writeField(c.Title)
	writeField(c.Description)
	writeField(c.CourseID)
	writeUint(uint64(c.CompletionDate.Unix()))
	writeField(c.DocumentReference)

	return hex.EncodeToString(h.Sum(nil))
}

// Clone returns an independent copy.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// Caller is the identity a mutation claims to act as plus the proof for it.
type Caller struct {
	Identity domain.Identity
	Proof    string
}

// IssueRequest carries the inputs of an issuance.
type IssueRequest struct {
	Issuer            Caller
	Recipient         domain.Identity
	Title             string
	Description       string
	CourseID          string
	DocumentReference string
}
