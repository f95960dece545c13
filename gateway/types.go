package gateway

import "github.com/identikit/identikit/session"

// User is the account identity returned by the auth API.
type User struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	Username         string `json:"username"`
	BiometricEnabled bool   `json:"biometric_enabled"`
}

// LoginResult is the outcome of a credential login. Exactly one of two shapes
// comes back: tokens (session established) or OTPRequired (second factor
// pending, no session yet).
type LoginResult struct {
	User        *User
	Tokens      *session.Tokens
	OTPRequired bool
}

// RegisterResult is the outcome of account creation. Tokens is nil when the
// server does not auto-login on signup.
type RegisterResult struct {
	User   *User
	Tokens *session.Tokens
}

/*
====================================
WIRE TYPES
====================================
*/

type wireTokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	Password2       string `json:"password2"`
	EnableBiometric bool   `json:"enable_biometric"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Use2FA   bool   `json:"use_2fa"`
}

type verifyOTPRequest struct {
	Code string `json:"code"`
}

type logoutRequest struct {
	Refresh string `json:"refresh"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type biometricRequest struct {
	EncryptedData string `json:"encrypted_data"`
}

type authResponse struct {
	User        *User       `json:"user"`
	Tokens      *wireTokens `json:"tokens"`
	OTPRequired bool        `json:"otp_required"`
	Message     string      `json:"message"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (r *authResponse) sessionTokens() *session.Tokens {
	if r.Tokens == nil || r.Tokens.Access == "" {
		return nil
	}
	return &session.Tokens{Access: r.Tokens.Access, Refresh: r.Tokens.Refresh}
}
