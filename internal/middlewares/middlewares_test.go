package middlewares

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/madcarpet/dreamweaver/internal/authorization/jwt"
	"github.com/madcarpet/dreamweaver/internal/constants"
	"github.com/madcarpet/dreamweaver/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	tokenizer := jwt.NewJwtTokenizer("middleware-secret", time.Hour)
	validToken, err := tokenizer.ProduceToken(models.Identity{"email": "alice@example.com"})
	require.NoError(t, err)
	foreignToken, err := jwt.NewJwtTokenizer("other-secret", time.Hour).ProduceToken(models.Identity{"email": "alice@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
		wantNext   bool
	}{
		{name: "no header", wantStatus: http.StatusUnauthorized, wantMsg: constants.MsgUnauthorized},
		{name: "no space", header: "garbage", wantStatus: http.StatusForbidden, wantMsg: constants.MsgForbidden},
		{name: "scheme only", header: "Bearer ", wantStatus: http.StatusForbidden, wantMsg: constants.MsgForbidden},
		{name: "not a token", header: "Bearer garbage", wantStatus: http.StatusForbidden, wantMsg: constants.MsgForbidden},
		{name: "other secret", header: "Bearer " + foreignToken, wantStatus: http.StatusForbidden, wantMsg: constants.MsgForbidden},
		{name: "valid", header: "Bearer " + validToken, wantStatus: http.StatusOK, wantNext: true},
		{name: "any scheme", header: "Token " + validToken, wantStatus: http.StatusOK, wantNext: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			var got models.Identity
			next := func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				got, _ = IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}

			req := httptest.NewRequest(http.MethodGet, "/orders", nil)
			if tt.header != "" {
				req.Header.Set(constants.AuthHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			Authorize(tokenizer, next)(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantNext, nextCalled)
			if tt.wantNext {
				assert.Equal(t, models.Identity{"email": "alice@example.com"}, got)
				return
			}
			var msg models.Message
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
			assert.Equal(t, tt.wantMsg, msg.Message)
		})
	}
}

func TestIdentityFromContextMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := IdentityFromContext(req.Context())
	assert.False(t, ok)
}
