package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/madcarpet/dreamweaver/internal/authorization"
	"github.com/madcarpet/dreamweaver/internal/logger"
	"github.com/madcarpet/dreamweaver/internal/models"
	"go.uber.org/zap"
)

const (
	claimExpiresAt = "exp"
	claimIssuedAt  = "iat"
	claimNotBefore = "nbf"
)

// Time claims are set by the tokenizer or would make the token unverifiable
var reservedClaims = []string{claimExpiresAt, claimIssuedAt, claimNotBefore}

type jwtTokenizer struct {
	secretKey      []byte
	expirationTime time.Duration
	now            func() time.Time
}

func NewJwtTokenizer(key string, etime time.Duration) *jwtTokenizer {
	return &jwtTokenizer{secretKey: []byte(key), expirationTime: etime, now: time.Now}
}

func (t *jwtTokenizer) ProduceToken(payload models.Identity) (string, error) {
	for _, c := range reservedClaims {
		if _, ok := payload[c]; ok {
			return "", fmt.Errorf("%w: %s", authorization.ErrReservedClaim, c)
		}
	}
	// Payload is copied verbatim, expiration and issue time are added on top
	issuedAt := t.now()
	claims := make(jwt.MapClaims, len(payload)+2)
	for k, v := range payload {
		claims[k] = v
	}
	claims[claimIssuedAt] = jwt.NewNumericDate(issuedAt)
	claims[claimExpiresAt] = jwt.NewNumericDate(issuedAt.Add(t.expirationTime))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(t.secretKey)
	if err != nil {
		logger.Log.Error("token generating error", zap.Error(err))
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

func (t *jwtTokenizer) VerifyToken(ts string) (models.Identity, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(ts, claims,
		func(tn *jwt.Token) (interface{}, error) {
			//Check if the token signed with HMAC
			if _, ok := tn.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tn.Header["alg"])
			}
			return t.secretKey, nil
		},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		logger.Log.Debug("token validating error", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", authorization.ErrInvalidCredential, err)
	}
	if !token.Valid {
		return nil, authorization.ErrInvalidCredential
	}
	identity := make(models.Identity, len(claims))
	for k, v := range claims {
		if k == claimExpiresAt || k == claimIssuedAt {
			continue
		}
		identity[k] = v
	}
	return identity, nil
}
