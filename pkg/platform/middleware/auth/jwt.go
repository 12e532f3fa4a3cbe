package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "flock/pkg/domain"
)

type memberClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// HMACValidator validates and issues HS256 tokens whose subject is a member
// ID and whose "role" claim is a declared role.
type HMACValidator struct {
	key    []byte
	issuer string
}

func NewHMACValidator(signingKey, issuer string) *HMACValidator {
	return &HMACValidator{key: []byte(signingKey), issuer: issuer}
}

func (v *HMACValidator) ValidateToken(tokenString string) (*Claims, error) {
	var claims memberClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return v.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	memberID, err := id.ParseMemberID(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("token subject: %w", err)
	}
	role, err := id.ParseRole(claims.Role)
	if err != nil {
		return nil, errors.New("token role is not recognised")
	}
	return &Claims{MemberID: memberID, Role: role}, nil
}

// Issue signs a token for memberID with role, valid for ttl from now.
func (v *HMACValidator) Issue(memberID id.MemberID, role id.Role, now time.Time, ttl time.Duration) (string, error) {
	claims := memberClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   memberID.String(),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
