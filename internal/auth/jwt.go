package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"licensedesk/internal/config"
)

var signingMethod = jwt.SigningMethodHS256

// Sign issues a token for userID. The returned jti identifies the session row
// that must exist for the token to be accepted.
func Sign(cfg config.JWTConfig, userID string, now time.Time) (token, jti string, expiresAt time.Time, err error) {
	if cfg.Secret == "" {
		return "", "", time.Time{}, errors.New("jwt secret is required")
	}
	jti = uuid.NewString()
	expiresAt = now.Add(cfg.TTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    cfg.Issuer,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err = jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", "", time.Time{}, err
	}
	return token, jti, expiresAt, nil
}

func Verify(cfg config.JWTConfig, tokenStr string) (Claims, error) {
	claims := &jwt.RegisteredClaims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{signingMethod.Alg()}), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil || !tok.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if claims.Subject == "" || claims.ID == "" {
		return Claims{}, errors.New("invalid claims")
	}
	return Claims{Subject: claims.Subject, JWTID: claims.ID}, nil
}
