package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/madcarpet/dreamweaver/internal/authorization"
	"github.com/madcarpet/dreamweaver/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTokenRoundTrip(t *testing.T) {
	tokenizer := NewJwtTokenizer(testSecret, 24*time.Hour)
	payloads := []models.Identity{
		{},
		{"email": "alice@example.com"},
		{"email": "bob@example.com", "name": "Bob", "admin": true, "age": float64(42)},
		{"email": "carol@example.com", "roles": []any{"buyer", "reviewer"}},
	}
	for _, p := range payloads {
		token, err := tokenizer.ProduceToken(p)
		require.NoError(t, err)
		assert.Len(t, strings.Split(token, "."), 3)

		identity, err := tokenizer.VerifyToken(token)
		require.NoError(t, err)
		assert.Equal(t, p, identity)
	}
}

func TestTokenExpiration(t *testing.T) {
	issued := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	issuer := NewJwtTokenizer(testSecret, 24*time.Hour)
	issuer.now = fixedClock(issued)
	token, err := issuer.ProduceToken(models.Identity{"email": "alice@example.com"})
	require.NoError(t, err)

	verifier := NewJwtTokenizer(testSecret, 24*time.Hour)

	verifier.now = fixedClock(issued.Add(23*time.Hour + 59*time.Minute))
	identity, err := verifier.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.Identity{"email": "alice@example.com"}, identity)

	verifier.now = fixedClock(issued.Add(24*time.Hour + time.Second))
	_, err = verifier.VerifyToken(token)
	assert.ErrorIs(t, err, authorization.ErrInvalidCredential)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenOtherSecret(t *testing.T) {
	token, err := NewJwtTokenizer("another-secret", time.Hour).ProduceToken(models.Identity{"email": "alice@example.com"})
	require.NoError(t, err)

	_, err = NewJwtTokenizer(testSecret, time.Hour).VerifyToken(token)
	assert.ErrorIs(t, err, authorization.ErrInvalidCredential)
}

func TestTokenTamperedSignature(t *testing.T) {
	tokenizer := NewJwtTokenizer(testSecret, time.Hour)
	token, err := tokenizer.ProduceToken(models.Identity{"email": "alice@example.com"})
	require.NoError(t, err)

	// flipping the high bit of a base64url character always changes decoded bytes
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	sigStart := strings.LastIndex(token, ".") + 1
	for i := sigStart; i < len(token); i++ {
		v := strings.IndexByte(alphabet, token[i])
		require.GreaterOrEqual(t, v, 0)
		tampered := token[:i] + string(alphabet[v^0x20]) + token[i+1:]
		_, err := tokenizer.VerifyToken(tampered)
		assert.ErrorIs(t, err, authorization.ErrInvalidCredential, "signature byte %d", i-sigStart)
	}
}

func TestTokenTamperedPayload(t *testing.T) {
	tokenizer := NewJwtTokenizer(testSecret, time.Hour)
	aliceToken, err := tokenizer.ProduceToken(models.Identity{"email": "alice@example.com"})
	require.NoError(t, err)
	bobToken, err := tokenizer.ProduceToken(models.Identity{"email": "bob@example.com"})
	require.NoError(t, err)

	alice := strings.Split(aliceToken, ".")
	bob := strings.Split(bobToken, ".")
	forged := strings.Join([]string{alice[0], bob[1], alice[2]}, ".")

	_, err = tokenizer.VerifyToken(forged)
	assert.ErrorIs(t, err, authorization.ErrInvalidCredential)
}

func TestTokenMalformed(t *testing.T) {
	tokenizer := NewJwtTokenizer(testSecret, time.Hour)
	for _, ts := range []string{"", "garbage", "a.b.c", "undefined"} {
		_, err := tokenizer.VerifyToken(ts)
		assert.ErrorIs(t, err, authorization.ErrInvalidCredential, ts)
	}
}

func TestTokenUnsignedRejected(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"email": "alice@example.com",
		"exp":   jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	ts, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJwtTokenizer(testSecret, time.Hour).VerifyToken(ts)
	assert.ErrorIs(t, err, authorization.ErrInvalidCredential)
}

func TestTokenWithoutExpirationRejected(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "alice@example.com"})
	ts, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewJwtTokenizer(testSecret, time.Hour).VerifyToken(ts)
	assert.ErrorIs(t, err, authorization.ErrInvalidCredential)
}

func TestProduceTokenReservedClaim(t *testing.T) {
	tokenizer := NewJwtTokenizer(testSecret, time.Hour)
	payloads := []models.Identity{
		{"email": "a@b.c", "exp": 1},
		{"email": "a@b.c", "iat": 5},
		{"email": "a@b.c", "nbf": "soon"},
		{"email": "a@b.c", "nbf": float64(time.Now().Add(48 * time.Hour).Unix())},
	}
	for _, p := range payloads {
		token, err := tokenizer.ProduceToken(p)
		assert.ErrorIs(t, err, authorization.ErrReservedClaim, "%v", p)
		assert.Empty(t, token)
	}
}

func TestTokensIssuedTogetherVerifyIndependently(t *testing.T) {
	tokenizer := NewJwtTokenizer(testSecret, 24*time.Hour)
	tokenizer.now = fixedClock(time.Now())
	payload := models.Identity{"email": "alice@example.com"}

	first, err := tokenizer.ProduceToken(payload)
	require.NoError(t, err)
	second, err := tokenizer.ProduceToken(payload)
	require.NoError(t, err)

	for _, token := range []string{first, second} {
		identity, err := tokenizer.VerifyToken(token)
		require.NoError(t, err)
		assert.Equal(t, payload, identity)
	}
}

func TestCheckOwner(t *testing.T) {
	alice := models.Identity{"email": "alice@example.com"}
	assert.NoError(t, authorization.CheckOwner(alice, "alice@example.com"))
	assert.ErrorIs(t, authorization.CheckOwner(alice, "bob@example.com"), authorization.ErrOwnershipMismatch)
	assert.ErrorIs(t, authorization.CheckOwner(alice, "Alice@example.com"), authorization.ErrOwnershipMismatch)
	assert.ErrorIs(t, authorization.CheckOwner(models.Identity{}, ""), authorization.ErrOwnershipMismatch)
	assert.ErrorIs(t, authorization.CheckOwner(models.Identity{"email": 7}, "7"), authorization.ErrOwnershipMismatch)
}
