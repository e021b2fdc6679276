package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "credreg/pkg/domain-errors"
)

func TestParseIdentity(t *testing.T) {
	t.Run("rejects empty and blank input", func(t *testing.T) {
		for _, in := range []string{"", "   "} {
			_, err := ParseIdentity(in)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		}
	})

	t.Run("rejects oversized input", func(t *testing.T) {
		_, err := ParseIdentity(strings.Repeat("G", MaxIdentityLength+1))
		require.Error(t, err)
	})

	t.Run("rejects characters outside the address alphabet", func(t *testing.T) {
		_, err := ParseIdentity("GABC DEF")
		require.Error(t, err)
		_, err = ParseIdentity("admin\n")
		require.NoError(t, err, "surrounding whitespace is trimmed")
		_, err = ParseIdentity("a/b")
		require.Error(t, err)
	})

	t.Run("accepts account addresses", func(t *testing.T) {
		id, err := ParseIdentity(" GD5DJQDDBKGAYNEAXU562HYGOOSYAEOO6AS53PZXBOZGCP5M2OPGMZV3 ")
		require.NoError(t, err)
		assert.Equal(t, Identity("GD5DJQDDBKGAYNEAXU562HYGOOSYAEOO6AS53PZXBOZGCP5M2OPGMZV3"), id)
		assert.False(t, id.IsNil())
	})
}

func TestParseCredentialID(t *testing.T) {
	t.Run("accepts zero", func(t *testing.T) {
		id, err := ParseCredentialID("0")
		require.NoError(t, err)
		assert.True(t, id.IsNil())
	})

	t.Run("rejects non-numeric and negative input", func(t *testing.T) {
		for _, in := range []string{"", "abc", "-1", "1.5"} {
			_, err := ParseCredentialID(in)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest), in)
		}
	})

	t.Run("round trips through String", func(t *testing.T) {
		id, err := ParseCredentialID("18446744073709551615")
		require.NoError(t, err)
		assert.Equal(t, "18446744073709551615", id.String())
	})
}
