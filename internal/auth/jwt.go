package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Devices authenticate anonymously. POST /v1/auth/device mints a new device
// identity and a signed access token for it; the device ID is the owner of
// every route and scoring configuration the client saves. An expired token can
// be exchanged for a fresh one for the same device within RefreshGrace of its
// expiry via POST /v1/auth/refresh. Tokens are signed with HS256.

// Token expiry constants.
const (
	// DefaultAccessTokenExpiry is how long device access tokens are valid.
	DefaultAccessTokenExpiry = 7 * 24 * time.Hour

	// DefaultRefreshGrace is how long after expiry a token may still be refreshed.
	DefaultRefreshGrace = 30 * 24 * time.Hour
)

// Predefined JWT errors.
var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
	ErrRefreshWindowOver  = errors.New("access token is too old to refresh")
)

// JWTClaims represents the claims in device access tokens.
type JWTClaims struct {
	jwt.RegisteredClaims

	// DeviceID is the authenticated device's ID.
	DeviceID string `json:"did"`
}

// JWTConfig holds configuration for the JWT service.
type JWTConfig struct {
	// SigningKey is the secret key used to sign JWTs.
	SigningKey string

	// Issuer is the issuer claim for tokens (e.g., "https://api.windrider.app").
	Issuer string

	// Audience is the audience claim for tokens (e.g., "windrider-api").
	Audience string

	// TokenExpiry overrides DefaultAccessTokenExpiry when set.
	TokenExpiry time.Duration

	// RefreshGrace overrides DefaultRefreshGrace when set.
	RefreshGrace time.Duration

	// Now replaces time.Now when set.
	Now func() time.Time
}

// JWTService handles JWT creation and validation.
type JWTService struct {
	signingKey   []byte
	issuer       string
	audience     string
	expiry       time.Duration
	refreshGrace time.Duration
	now          func() time.Time
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg JWTConfig) *JWTService {
	expiry := cfg.TokenExpiry
	if expiry <= 0 {
		expiry = DefaultAccessTokenExpiry
	}
	grace := cfg.RefreshGrace
	if grace <= 0 {
		grace = DefaultRefreshGrace
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &JWTService{
		signingKey:   []byte(cfg.SigningKey),
		issuer:       cfg.Issuer,
		audience:     cfg.Audience,
		expiry:       expiry,
		refreshGrace: grace,
		now:          now,
	}
}

// GenerateAccessToken creates a new access token for the given device.
func (s *JWTService) GenerateAccessToken(deviceID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiry)

	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   deviceID,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		DeviceID: deviceID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateAccessToken validates an access token and returns the claims.
func (s *JWTService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	claims, err := s.parse(tokenString,
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrAccessTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidAccessToken, err.Error())
	}
	return claims, nil
}

// ValidateForRefresh checks the signature, issuer and audience of a token
// that may have expired, and accepts it if it expired less than the refresh
// grace period ago.
func (s *JWTService) ValidateForRefresh(tokenString string) (*JWTClaims, error) {
	claims, err := s.parse(tokenString, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAccessToken, err.Error())
	}

	if claims.Issuer != s.issuer || !slices.Contains(claims.Audience, s.audience) {
		return nil, ErrInvalidAccessToken
	}
	if claims.ExpiresAt == nil || claims.DeviceID == "" {
		return nil, ErrInvalidAccessToken
	}
	if s.now().After(claims.ExpiresAt.Add(s.refreshGrace)) {
		return nil, ErrRefreshWindowOver
	}
	return claims, nil
}

func (s *JWTService) parse(tokenString string, opts ...jwt.ParserOption) (*JWTClaims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{"HS256"}))

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}
