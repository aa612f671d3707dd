package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"backoffice-chat/internal/domain/actor"
	chaterrors "backoffice-chat/pkg/errors"
)

// Claims is the verified identity the external auth system issues.
// The core never authenticates; it only consumes these claims.
type Claims struct {
	ActorKind string `json:"actor_kind"`
	ActorID   string `json:"actor_id"`
	Role      string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Resolver turns a bearer token into an Actor.
type Resolver struct {
	secret []byte
}

func NewResolver(secret string) *Resolver {
	return &Resolver{secret: []byte(secret)}
}

// ResolveActor parses and verifies the token, returning the tagged
// actor union. Any failure is Unauthenticated.
func (r *Resolver) ResolveActor(token string) (actor.Actor, error) {
	if token == "" {
		return actor.Actor{}, chaterrors.ErrUnauthenticated
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !parsed.Valid {
		return actor.Actor{}, chaterrors.ErrUnauthenticated
	}

	id, err := uuid.Parse(claims.ActorID)
	if err != nil {
		return actor.Actor{}, chaterrors.ErrUnauthenticated
	}

	switch claims.ActorKind {
	case string(actor.KindStaff):
		if claims.Role == "" {
			return actor.Actor{}, chaterrors.ErrUnauthenticated
		}
		return actor.Staff(id, claims.Role), nil
	case string(actor.KindCustomer):
		return actor.Customer(id), nil
	}
	return actor.Actor{}, chaterrors.ErrUnauthenticated
}
