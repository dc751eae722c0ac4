package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/staffdesk/employee-api/config"
	"github.com/staffdesk/employee-api/internal/api"
)

// JWTIssuer mints HMAC-signed access tokens carrying the employee identity.
type JWTIssuer struct {
	cfg config.JWTConfig
}

func NewJWTIssuer(cfg config.JWTConfig) *JWTIssuer {
	return &JWTIssuer{cfg: cfg}
}

func (i *JWTIssuer) GenerateAccessToken(employeeID int, username, role string) (string, error) {
	now := time.Now()
	claims := api.Claims{
		EmployeeID: employeeID,
		Username:   username,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", employeeID),
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings{i.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(i.cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}
