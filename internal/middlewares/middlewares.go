package middlewares

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/madcarpet/dreamweaver/internal/authorization"
	"github.com/madcarpet/dreamweaver/internal/constants"
	"github.com/madcarpet/dreamweaver/internal/logger"
	"github.com/madcarpet/dreamweaver/internal/models"
	"go.uber.org/zap"
)

type ctxKey string

const IdentityKey ctxKey = "identity"

// Authorize admits requests carrying a valid "<scheme> <token>" Authorization header
// and puts the decoded identity into the request context
func Authorize(a authorization.Authorizer, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		//jwt header presence
		authHeader := r.Header.Get(constants.AuthHeader)
		if authHeader == "" {
			logger.Log.Debug("request rejected", zap.String("PATH", r.URL.Path), zap.Error(authorization.ErrMissingCredential))
			WriteMessage(w, http.StatusUnauthorized, constants.MsgUnauthorized)
			return
		}
		//second field is the token, a header without one verifies as empty token
		var token string
		if fields := strings.Fields(authHeader); len(fields) > 1 {
			token = fields[1]
		}
		identity, err := a.VerifyToken(token)
		if err != nil {
			logger.Log.Debug("request rejected", zap.String("PATH", r.URL.Path), zap.Error(err))
			WriteMessage(w, http.StatusForbidden, constants.MsgForbidden)
			return
		}
		ctx := context.WithValue(r.Context(), IdentityKey, identity)
		logger.Log.Debug("request authorized successfully", zap.String("PATH", r.URL.Path))
		next(w, r.WithContext(ctx))
	}
}

// IdentityFromContext returns the identity stored by Authorize
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(models.Identity)
	return identity, ok
}

// WriteMessage writes {"message": msg} with the given status
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, models.Message{Message: msg})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Log.Error("response serialisation error", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(constants.MsgInternalError))
		return
	}
	w.Header().Set("Content-Type", constants.CntTypeHeaderJSON)
	w.WriteHeader(status)
	w.Write(body)
}
