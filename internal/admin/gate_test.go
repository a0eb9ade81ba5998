package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_PlainSecret(t *testing.T) {
	g, err := NewGate("kamix123", "", 0)
	require.NoError(t, err)

	assert.True(t, g.Authorize("kamix123"))
	assert.False(t, g.Authorize("wrong"))
	assert.False(t, g.Authorize(""))
	assert.False(t, g.Authorize("kamix1234"))

	// Failed checks leave the gate usable
	assert.True(t, g.Authorize("kamix123"))

	assert.ErrorIs(t, g.Check("wrong"), ErrUnauthorized)
	assert.NoError(t, g.Check("kamix123"))
}

func TestGate_EmptySecretDeniesAll(t *testing.T) {
	g, err := NewGate("", "", 0)
	require.NoError(t, err)
	assert.False(t, g.Authorize(""))
	assert.False(t, g.Authorize("anything"))

	var nilGate *Gate
	assert.False(t, nilGate.Authorize("x"))
	assert.False(t, nilGate.AuthorizeUser(1))
}

func TestGate_HashedSecret(t *testing.T) {
	phc, err := HashSecret("kamix123", []byte("0123456789abcdef"))
	require.NoError(t, err)

	g, err := NewGate("ignored-when-hash-set", phc, 0)
	require.NoError(t, err)
	assert.True(t, g.Authorize("kamix123"))
	assert.False(t, g.Authorize("ignored-when-hash-set"))
	assert.False(t, g.Authorize("wrong"))
}

func TestGate_BadHash(t *testing.T) {
	for _, bad := range []string{
		"plain",
		"$argon2i$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$!!$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHQ$",
		"$argon2id$v=19$m=1,t=1,p=1$$aGFzaA",
	} {
		_, err := NewGate("", bad, 0)
		assert.Error(t, err, bad)
	}
}

func TestGate_AuthorizeUser(t *testing.T) {
	g, err := NewGate("", "", 7104074002)
	require.NoError(t, err)
	assert.True(t, g.AuthorizeUser(7104074002))
	assert.False(t, g.AuthorizeUser(1))

	unset, _ := NewGate("", "", 0)
	assert.False(t, unset.AuthorizeUser(0))
}
