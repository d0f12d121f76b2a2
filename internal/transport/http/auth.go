package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/cimillas/room-booking/internal/app"
	"github.com/cimillas/room-booking/internal/domain"
)

type actorKey struct{}

// Claims identify the actor by subject. The role is always read from the
// actor directory, never from the token.
type Claims struct {
	jwt.RegisteredClaims
}

// Authenticator resolves bearer tokens to actors.
type Authenticator struct {
	secret []byte
	actors app.ActorDirectory
	logger *log.Logger
}

func NewAuthenticator(secret []byte, actors app.ActorDirectory, logger *log.Logger) *Authenticator {
	if logger == nil {
		logger = log.Default()
	}
	return &Authenticator{secret: secret, actors: actors, logger: logger}
}

// Middleware rejects requests without a valid bearer token and stores the
// resolved actor in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
			return
		}

		actorID, err := a.verify(strings.TrimSpace(raw))
		if err != nil {
			a.logger.Printf("WARN: rejected token path=%s: %v", r.URL.Path, err)
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid or expired token")
			return
		}

		actor, err := a.actors.GetActor(r.Context(), actorID)
		if err != nil {
			if errors.Is(err, domain.ErrActorNotFound) || errors.Is(err, domain.ErrInvalidID) {
				a.logger.Printf("WARN: unknown actor actor=%s path=%s", actorID, r.URL.Path)
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "unknown actor")
				return
			}
			a.logger.Printf("ERROR: resolve actor actor=%s: %v", actorID, err)
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}

func (a *Authenticator) verify(raw string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token invalid")
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// SignToken issues an HS256 token for actorID valid for ttl from now.
func SignToken(secret []byte, actorID string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func actorFrom(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}

// requireActor writes 401 when no actor is attached to the request.
func requireActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthenticated")
	}
	return actor, ok
}
