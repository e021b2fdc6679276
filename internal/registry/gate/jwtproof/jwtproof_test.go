package jwtproof

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credreg/pkg/domain"
	dErrors "credreg/pkg/domain-errors"
	"credreg/pkg/platform/middleware/requesttime"
)

const testKey = "test-signing-key"

func at(t time.Time) context.Context {
	return requesttime.WithTime(context.Background(), t)
}

func TestMintThenVerify(t *testing.T) {
	svc := New(testKey, "credreg", time.Minute)
	ctx := at(time.Now())

	proof, err := svc.Mint(ctx, "GADMIN")
	require.NoError(t, err)

	identity, err := svc.Verify(ctx, proof)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity("GADMIN"), identity)
}

func TestVerifyRejects(t *testing.T) {
	now := time.Now()
	svc := New(testKey, "credreg", time.Minute)

	valid, err := svc.Mint(at(now), "GADMIN")
	require.NoError(t, err)
	otherKey, err := New("another-key", "credreg", time.Minute).Mint(at(now), "GADMIN")
	require.NoError(t, err)
	otherIssuer, err := New(testKey, "someone-else", time.Minute).Mint(at(now), "GADMIN")
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "GADMIN",
		Issuer:    "credreg",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "GADMIN",
		Issuer:  "credreg",
	}).SignedString([]byte(testKey))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not an identity!",
		Issuer:    "credreg",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}).SignedString([]byte(testKey))
	require.NoError(t, err)

	tests := []struct {
		name  string
		ctx   context.Context
		proof string
	}{
		{"empty", at(now), ""},
		{"garbage", at(now), "not.a.jwt"},
		{"wrong key", at(now), otherKey},
		{"wrong issuer", at(now), otherIssuer},
		{"alg none", at(now), noneAlg},
		{"no expiry", at(now), noExpiry},
		{"invalid subject", at(now), badSubject},
		{"expired", at(now.Add(2 * time.Minute)), valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(tt.ctx, tt.proof)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		})
	}
}

func TestMintRequiresIdentity(t *testing.T) {
	_, err := New(testKey, "credreg", time.Minute).Mint(context.Background(), "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}
