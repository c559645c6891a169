package jwttoken

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	dErrors "gatehouse/pkg/domain-errors"
)

// KeycloakClaims is the subset of a Keycloak access token the resolver reads.
type KeycloakClaims struct {
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	jwt.RegisteredClaims
}

// KeycloakVerifier checks RS256 tokens against the realm's published keys.
type KeycloakVerifier struct {
	keys     *PublicKeyCache
	issuer   string
	audience string
}

func NewKeycloakVerifier(keys *PublicKeyCache, issuer, audience string) *KeycloakVerifier {
	return &KeycloakVerifier{keys: keys, issuer: issuer, audience: audience}
}

func (v *KeycloakVerifier) Verify(ctx context.Context, tokenString string) (*KeycloakClaims, error) {
	var keyErr error
	parsed, err := jwt.ParseWithClaims(tokenString, &KeycloakClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		kid, _ := token.Header["kid"].(string)
		key, err := v.keys.Key(ctx, kid)
		if err != nil {
			keyErr = err
			return nil, err
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
	)
	if err != nil {
		if keyErr != nil {
			return nil, dErrors.Wrap(keyErr, dErrors.CodeUnauthorized, "signing key unavailable")
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*KeycloakClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
