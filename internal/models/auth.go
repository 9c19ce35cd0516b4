package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the payload of access tokens issued by the external identity
// provider. The engine never issues tokens, it only parses them.
type JWTClaims struct {
	UserID      int64    `json:"uid"`
	PersonID    int64    `json:"pid"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Actor is the authenticated caller as seen by the services. Mutating calls
// require the admin grant.
type Actor struct {
	UserID      int64
	PersonID    int64
	Permissions PermissionSet
}

// IsAdmin reports whether the actor carries the admin grant.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Permissions.Has(PermissionAdmin)
}

// ActorFromClaims converts parsed token claims into an Actor.
func ActorFromClaims(claims *JWTClaims) *Actor {
	if claims == nil {
		return nil
	}
	perms := make(PermissionSet, 0, len(claims.Permissions))
	for _, p := range claims.Permissions {
		perms = append(perms, Permission(p))
	}
	return &Actor{UserID: claims.UserID, PersonID: claims.PersonID, Permissions: perms}
}
