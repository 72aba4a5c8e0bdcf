package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the bearer token claims. A non-empty EmployerID limits the caller to that
// employer's paychecks and ledger.
type Claims struct {
	EmployerID string `json:"employer_id,omitempty"`
	jwt.RegisteredClaims
}

type claimsKey struct{}

// ParseToken validates an HS256 token.
func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("auth: empty token")
	}
	if len(secret) == 0 {
		return nil, errors.New("auth: empty secret")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("auth: invalid token")
	}
	return claims, nil
}

// ClaimsFromContext returns the claims of an authenticated request.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey{}).(*Claims)
	return claims
}

// authorizedFor reports whether the request may act for employerID.
func authorizedFor(ctx context.Context, employerID string) bool {
	claims := ClaimsFromContext(ctx)
	if claims == nil || claims.EmployerID == "" {
		return true
	}
	return strings.EqualFold(claims.EmployerID, employerID)
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}
		claims, err := ParseToken(strings.TrimSpace(token), s.cfg.JWTSecret)
		if err != nil {
			s.logger.Warn("rejected bearer token", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusUnauthorized, errors.New("invalid bearer token"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}
