package auth

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Middleware gates an HTTP handler behind bearer-token authorization. It
// plays the role API Gateway's routing layer plays in front of the adapter:
// the gate sees only {authorizationToken, methodArn} and the handler sees
// only the gate's context map, rebuilt into claims on the request context.
func Middleware(gate *Gate, logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With("component", "auth_middleware")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				log.Warn("Missing Authorization header", slog.String("path", r.URL.Path))
				writeUnauthorized(w)
				return
			}

			resp, err := gate.Authorize(r.Context(), AuthorizerRequest{
				AuthorizationToken: header,
				MethodArn:          r.Method + " " + r.URL.Path,
			})
			if err != nil {
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claimsFromGateContext(resp.Context))))
		})
	}
}

func claimsFromGateContext(gateCtx map[string]string) *VerifiedClaims {
	claims := &VerifiedClaims{
		ClientID: gateCtx["clientId"],
		Scopes:   strings.Fields(gateCtx["scope"]),
		Issuer:   gateCtx["issuer"],
	}
	if unix, err := strconv.ParseInt(gateCtx["expiresAt"], 10, 64); err == nil {
		claims.ExpiresAt = time.Unix(unix, 0)
	}
	return claims
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
}
