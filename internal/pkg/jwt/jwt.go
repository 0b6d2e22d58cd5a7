package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const issuer = "slotkeeper"

// Service issues booking manage tokens. A token lets its holder look up,
// reschedule or cancel exactly one booking.
type Service struct {
	secret []byte
	ttl    time.Duration
}

type Claims struct {
	BookingID       string `json:"booking_id"`
	RemoteBookingID string `json:"remote_booking_id"`
	Email           string `json:"email"`
	jwtlib.RegisteredClaims
}

func New(secret string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (s *Service) GenerateToken(bookingID, remoteBookingID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		BookingID:       bookingID,
		RemoteBookingID: remoteBookingID,
		Email:           email,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    issuer,
			Subject:   remoteBookingID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.RemoteBookingID == "" {
		return nil, errors.New("invalid claims")
	}

	return claims, nil
}
