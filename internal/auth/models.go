// Package auth issues and validates anonymous device tokens for WindRider.
package auth

// DevicePlatform identifies the client platform registering a device.
type DevicePlatform string

const (
	PlatformIOS     DevicePlatform = "IOS"
	PlatformAndroid DevicePlatform = "ANDROID"
	PlatformWeb     DevicePlatform = "WEB"
)

// DeviceTokenRequest is the request body for registering a device.
type DeviceTokenRequest struct {
	// Platform is optional and only recorded in the issuing log line.
	Platform DevicePlatform `json:"platform,omitempty"`
}

// Validate validates the device token request.
func (r *DeviceTokenRequest) Validate() []FieldError {
	switch r.Platform {
	case "", PlatformIOS, PlatformAndroid, PlatformWeb:
		return nil
	default:
		return []FieldError{{
			Field:   "platform",
			Message: "must be one of IOS, ANDROID, WEB",
			Code:    "INVALID_ENUM",
		}}
	}
}

// RefreshTokenRequest is the request body for exchanging an expired token.
type RefreshTokenRequest struct {
	AccessToken string `json:"accessToken"`
}

// Validate validates the refresh request.
func (r *RefreshTokenRequest) Validate() []FieldError {
	if r.AccessToken == "" {
		return []FieldError{{
			Field:   "accessToken",
			Message: "access token is required",
			Code:    "REQUIRED",
		}}
	}
	return nil
}

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// TokenResponse represents the response after successful authentication.
type TokenResponse struct {
	// AccessToken is the JWT access token for API authentication.
	AccessToken string `json:"accessToken"`

	// TokenType is always "Bearer".
	TokenType string `json:"tokenType"`

	// ExpiresIn is the number of seconds until the access token expires.
	ExpiresIn int64 `json:"expiresIn"`

	// DeviceID is the device identity the token authenticates.
	DeviceID string `json:"deviceId"`
}
