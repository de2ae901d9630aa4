package auth

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_GenerateAndValidate(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	id := uuid.New()

	token, err := m.GenerateToken(id, "alice@chatcore.test", "Alice")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "Alice", claims.Name)
	assert.Equal(t, "chatcore", claims.Issuer)

	_, err = NewJWTManager("other", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func Test_ExpiredToken(t *testing.T) {
	m := NewJWTManager("secret", -time.Minute)
	token, err := m.GenerateToken(uuid.New(), "a@chatcore.test", "A")
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func Test_Verifier(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	m := NewJWTManager("secret", time.Hour)
	v := NewVerifier(m, rdb)

	token, err := m.GenerateToken(uuid.New(), "a@chatcore.test", "A")
	require.NoError(t, err)

	_, err = v.Verify(t.Context(), token)
	require.NoError(t, err)

	_, err = v.Verify(t.Context(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(t.Context(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, mr.Set("blacklist:"+token, "1"))
	_, err = v.Verify(t.Context(), token)
	assert.ErrorIs(t, err, ErrRevokedToken)
}
