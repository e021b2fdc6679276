// Package jwtproof verifies and mints identity proofs as HS256 JWTs whose
// subject is the proven identity.
package jwtproof

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"credreg/pkg/domain"
	dErrors "credreg/pkg/domain-errors"
	"credreg/pkg/platform/middleware/requesttime"
)

// Service signs and validates identity proofs with a shared key.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	leeway     time.Duration
}

func New(signingKey, issuer string, ttl time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
		leeway:     5 * time.Second,
	}
}

// Mint issues a proof for identity valid for the configured TTL from the
// request time.
func (s *Service) Mint(ctx context.Context, identity domain.Identity) (string, error) {
	if identity.IsNil() {
		return "", dErrors.New(dErrors.CodeBadRequest, "identity is required")
	}
	now := requesttime.Now(ctx)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   identity.String(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		ID:        uuid.NewString(),
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign proof")
	}
	return signed, nil
}

// Verify checks algorithm, signature, expiry, and issuer and returns the
// proven identity. All failures carry CodeUnauthorized.
func (s *Service) Verify(ctx context.Context, proof string) (domain.Identity, error) {
	if proof == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "missing identity proof")
	}

	claims := new(jwt.RegisteredClaims)
	parsed, err := jwt.ParseWithClaims(proof, claims, func(t *jwt.Token) (any, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(func() time.Time { return requesttime.Now(ctx) }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "identity proof expired")
		}
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid identity proof")
	}
	if !parsed.Valid {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid identity proof")
	}

	identity, err := domain.ParseIdentity(claims.Subject)
	if err != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "identity proof has no valid subject")
	}
	return identity, nil
}
