package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTer_IssueParse(t *testing.T) {
	j := &JWTer{Secret: []byte("k"), Issuer: "tracker", TTL: time.Hour}

	tok, err := j.Issue("asmith", "user", "Alice Smith")
	require.NoError(t, err)

	c, err := j.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "asmith", c.UID)
	assert.Equal(t, "user", c.Role)
	assert.Equal(t, "Alice Smith", c.Name)
}

func TestJWTer_RejectsForeignSecretAndIssuer(t *testing.T) {
	j := &JWTer{Secret: []byte("k"), Issuer: "tracker", TTL: time.Hour}
	tok, err := j.Issue("admin", "admin", "Admin")
	require.NoError(t, err)

	_, err = (&JWTer{Secret: []byte("other"), Issuer: "tracker", TTL: time.Hour}).Parse(tok)
	assert.Error(t, err)

	_, err = (&JWTer{Secret: []byte("k"), Issuer: "someone-else", TTL: time.Hour}).Parse(tok)
	assert.Error(t, err)
}

func TestJWTer_Expired(t *testing.T) {
	j := &JWTer{Secret: []byte("k"), Issuer: "tracker", TTL: -2 * time.Minute}
	tok, err := j.Issue("admin", "admin", "Admin")
	require.NoError(t, err)

	_, err = j.Parse(tok)
	assert.Error(t, err)
}
