package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service provides authentication operations.
type Service struct {
	jwtService *JWTService
	logger     zerolog.Logger
}

// ServiceConfig holds configuration for the auth service.
type ServiceConfig struct {
	JWTService *JWTService
	Logger     zerolog.Logger
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		jwtService: cfg.JWTService,
		logger:     cfg.Logger,
	}
}

// RegisterDevice mints a new anonymous device identity and its access token.
func (s *Service) RegisterDevice(req *DeviceTokenRequest) (*TokenResponse, error) {
	deviceID := "dev_" + uuid.New().String()[:22]

	resp, err := s.issue(deviceID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("device_id", deviceID).
		Str("platform", string(req.Platform)).
		Msg("device registered")
	return resp, nil
}

// Refresh exchanges a token, expired or not, for a new one for the same device.
func (s *Service) Refresh(req *RefreshTokenRequest) (*TokenResponse, error) {
	claims, err := s.jwtService.ValidateForRefresh(req.AccessToken)
	if err != nil {
		return nil, err
	}
	return s.issue(claims.DeviceID)
}

// ValidateAccessToken validates an access token and returns the device ID.
func (s *Service) ValidateAccessToken(tokenString string) (string, error) {
	claims, err := s.jwtService.ValidateAccessToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.DeviceID, nil
}

func (s *Service) issue(deviceID string) (*TokenResponse, error) {
	token, expiresAt, err := s.jwtService.GenerateAccessToken(deviceID)
	if err != nil {
		return nil, fmt.Errorf("generating access token: %w", err)
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(expiresAt.Sub(s.jwtService.now()).Round(time.Second).Seconds()),
		DeviceID:    deviceID,
	}, nil
}
