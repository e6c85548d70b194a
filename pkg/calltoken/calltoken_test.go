package calltoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssue(t *testing.T) {
	issuer := New("key", "secret", 24*time.Hour)

	token, err := issuer.Issue()
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	permissions, err := issuer.parse(token)
	require.NoError(t, err)
	assert.Equal(t, DefaultPermissions, permissions)
}

func TestIssueNotConfigured(t *testing.T) {
	_, err := New("", "", time.Hour).Issue()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestParseExpired(t *testing.T) {
	issuer := New("key", "secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := issuer.Issue("allow_join")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseWrongSecret(t *testing.T) {
	token, err := New("key", "secret", time.Hour).Issue()
	require.NoError(t, err)

	_, err = New("key", "other", time.Hour).parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
