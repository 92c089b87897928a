package auth

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tazhate/classsync/config"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims are issued by the identity provider. Subject is the user ID.
type Claims struct {
	Email string `json:"email"`
	jwtv5.RegisteredClaims
}

// Identity is the verified caller passed explicitly into services.
// CalendarToken is the OAuth access token for the calendar provider, when
// the client supplied one.
type Identity struct {
	UserID        string
	Email         string
	CalendarToken string
}

// Manager verifies identity tokens
type Manager struct {
	secret []byte
	issuer string
}

func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
	}
}

// GenerateToken signs a token for userID. Used by tests and local tooling;
// production tokens come from the identity provider.
func (m *Manager) GenerateToken(userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken validates the token and returns its claims
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	opts := []jwtv5.ParserOption{jwtv5.WithExpirationRequired()}
	if m.issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(m.issuer))
	}

	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// Identity builds the caller identity from a verified token
func (m *Manager) Identity(tokenString, calendarToken string) (Identity, error) {
	claims, err := m.ParseToken(tokenString)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		UserID:        claims.Subject,
		Email:         claims.Email,
		CalendarToken: calendarToken,
	}, nil
}
