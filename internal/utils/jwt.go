package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const refreshType = "refresh"

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	Type   string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) IsRefresh() bool { return c.Type == refreshType }

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// TokenManager signs access and refresh tokens with separate secrets.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (m *TokenManager) AccessTTL() time.Duration { return m.accessTTL }

func (m *TokenManager) sign(secret []byte, userID, role, typ string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func (m *TokenManager) IssueAccess(userID, role string) (string, error) {
	return m.sign(m.accessSecret, userID, role, "", m.accessTTL)
}

// IssueRefresh tags the token with type=refresh so it is refused as an access token.
func (m *TokenManager) IssueRefresh(userID, role string) (string, error) {
	return m.sign(m.refreshSecret, userID, role, refreshType, m.refreshTTL)
}

func (m *TokenManager) IssuePair(userID, role string) (TokenPair, error) {
	access, err := m.IssueAccess(userID, role)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.IssueRefresh(userID, role)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.accessTTL / time.Second),
	}, nil
}

func (m *TokenManager) ParseAccess(raw string) (*Claims, error) {
	claims, err := m.parse(raw, m.accessSecret)
	if err != nil {
		return nil, err
	}
	if claims.IsRefresh() {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (m *TokenManager) ParseRefresh(raw string) (*Claims, error) {
	claims, err := m.parse(raw, m.refreshSecret)
	if err != nil {
		return nil, err
	}
	if !claims.IsRefresh() {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (m *TokenManager) parse(raw string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
