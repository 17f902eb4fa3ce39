package jwt

import (
	"errors"
	"time"

	"go-pos/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identify a console session. BackendToken is the backend's own access token, carried
// so the gateway can call the backend on the staff member's behalf.
type Claims struct {
	StaffID      string `json:"staff_id"`
	StaffName    string `json:"staff_name"`
	Role         string `json:"role"`
	BackendToken string `json:"backend_token"`
	jwt.RegisteredClaims
}

type Manager struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewManager(cfg config.JwtConfig) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "go-pos"
	}
	return &Manager{key: []byte(cfg.Secret), ttl: ttl, issuer: issuer, now: time.Now}, nil
}

// GenerateToken signs a session token for the given staff member.
func (m *Manager) GenerateToken(staffID, name, role, backendToken string) (string, error) {
	now := m.now()
	claims := &Claims{
		StaffID:      staffID,
		StaffName:    name,
		Role:         role,
		BackendToken: backendToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   staffID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.key)
}

func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
