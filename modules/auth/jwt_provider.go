package auth

import (
	"fmt"
	"time"

	"github.com/Deepreo/mathengine/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type Claims struct {
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// JWTTokenProvider issues and validates HS256 bearer tokens.
type JWTTokenProvider struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
	clock     clockwork.Clock
}

func NewJWTTokenProvider(cfg Config, clock clockwork.Clock) *JWTTokenProvider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &JWTTokenProvider{
		secretKey: []byte(cfg.SecretKey),
		issuer:    cfg.Issuer,
		ttl:       cfg.TokenTTL,
		clock:     clock,
	}
}

// Issue signs a token for subject carrying scopes.
func (p *JWTTokenProvider) Issue(subject string, scopes ...string) (string, time.Time, error) {
	now := p.clock.Now()
	exp := now.Add(p.ttl)

	claims := Claims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    p.issuer,
			Subject:   subject,
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secretKey)
	if err != nil {
		return "", time.Time{}, errors.AppError(fmt.Errorf("sign token: %w", err))
	}
	return signed, exp, nil
}

func (p *JWTTokenProvider) Validate(tokenString string) (*Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return p.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithTimeFunc(p.clock.Now),
	)
	if err != nil {
		return nil, errors.AuthError(fmt.Errorf("%w: %v", ErrInvalidToken, err))
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.AuthError(fmt.Errorf("%w", ErrInvalidToken))
	}

	return &Principal{
		Subject:   claims.Subject,
		Scopes:    claims.Scopes,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
