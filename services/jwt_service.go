package services

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"snapfix-server/config"
	"snapfix-server/types"
)

const tokenIssuer = "snapfix-server"

// JWTService issues and validates access tokens for customers and workers.
type JWTService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret: []byte(cfg.Secret),
		expiry: time.Duration(cfg.ExpiryHours) * time.Hour,
		now:    time.Now,
	}
}

// GenerateToken signs an HS256 token carrying the principal's id and role.
func (js *JWTService) GenerateToken(p types.Principal) (string, error) {
	now := js.now()
	claims := &types.Claims{
		UserID: p.ID,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(js.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(uint64(p.ID), 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(js.secret)
}

// ValidateToken parses tokenString and returns the principal it names.
func (js *JWTService) ValidateToken(tokenString string) (types.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &types.Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return js.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(js.now))
	if err != nil {
		return types.Principal{}, err
	}

	claims, ok := token.Claims.(*types.Claims)
	if !ok || !token.Valid {
		return types.Principal{}, errors.New("invalid token claims")
	}
	if claims.UserID == 0 || (claims.Role != types.RoleCustomer && claims.Role != types.RoleWorker) {
		return types.Principal{}, errors.New("token does not name a principal")
	}
	return types.Principal{ID: claims.UserID, Role: claims.Role}, nil
}
