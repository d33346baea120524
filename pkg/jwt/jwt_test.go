package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParse(t *testing.T) {
	token, err := Generate("secreto", "u-1", "store-1", "operator", "commerce-core", 5)
	require.NoError(t, err)

	claims, err := Parse("secreto", token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "store-1", claims.StoreID)
	assert.Equal(t, "operator", claims.Role)
	assert.Equal(t, "commerce-core", claims.Issuer)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	token, err := Generate("secreto", "u-1", "store-1", "admin", "x", 5)
	require.NoError(t, err)
	_, err = Parse("otro", token)
	assert.Error(t, err)
}

func TestParse_Expirado(t *testing.T) {
	token, err := Generate("secreto", "u-1", "store-1", "admin", "x", -1)
	require.NoError(t, err)
	_, err = Parse("secreto", token)
	assert.Error(t, err)
}

func TestSecretVacio(t *testing.T) {
	_, err := Generate("", "u", "s", "r", "i", 1)
	assert.ErrorIs(t, err, ErrEmptySecret)
	_, err = Parse("", "x")
	assert.ErrorIs(t, err, ErrEmptySecret)
}
