package accounts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hauslive/hausd/internal/domain"
)

func (s *Service) signToken(address domain.Address, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   string(address),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(s.jwtSecret)
}

// VerifyToken validates a bearer token and returns the address it was
// issued to.
func (s *Service) VerifyToken(tokenString string) (domain.Address, error) {
	const op = "service.accounts.VerifyToken"

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.jwtSecret, nil
		},
		// Expiry is checked against the service clock, like every other
		// time gate in the ledger.
		jwt.WithTimeFunc(s.clk.Now),
	)
	if err != nil || !token.Valid {
		return domain.NoAddress, fmt.Errorf("%s:%w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return domain.NoAddress, fmt.Errorf("%s:%w", op, ErrInvalidToken)
	}

	return domain.Address(claims.Subject), nil
}
