package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stashdrive/stash/internal/ctxkeys"
	"github.com/stashdrive/stash/internal/service"
)

// AuthMiddleware verifies the bearer token the external identity service
// minted and attaches the caller's identity (user id + root directory id) to
// the request context. Authentication itself lives outside this system: the
// middleware only checks the signature and extracts the claims.
//
// When the token carries no root directory yet (a freshly registered user),
// the root is provisioned on first use.
func AuthMiddleware(jwtSecret string, dirService *service.DirectoryService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				// No token, continue without identity
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifyToken(token, jwtSecret)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			userID, ok := claims["user_id"].(string)
			if !ok || userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			rootDirID, _ := claims["root_dir_id"].(string)
			if rootDirID == "" {
				root, err := dirService.ProvisionRoot(userID)
				if err != nil {
					next.ServeHTTP(w, r)
					return
				}
				rootDirID = root.ID
			}

			ctx := ctxkeys.WithUser(r.Context(), &ctxkeys.Identity{
				UserID:    userID,
				RootDirID: rootDirID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that carry no verified identity
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.User(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","message":"authentication required"}`))
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	cookie, err := r.Cookie("auth_token")
	if err == nil {
		return cookie.Value
	}

	return ""
}

func verifyToken(token, secret string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if ok && parsed.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
