package gateway

import (
	"context"
	"strings"
	"unicode"
)

const minPasswordLength = 8

// Register creates an account. Password length and confirmation are checked
// client-side; a failed check returns a validation error without any network
// I/O. A session is only established when the response carries tokens.
// Retrying after a partial success surfaces the server's conflict rather than
// creating a duplicate.
func (c *Client) Register(ctx context.Context, email, password, confirm string, enableBiometric bool) (*RegisterResult, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmailRequired
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if password != confirm {
		return nil, ErrPasswordMismatch
	}

	var resp authResponse
	err := c.post(ctx, "/auth/register", registerRequest{
		Email:           email,
		Password:        password,
		Password2:       confirm,
		EnableBiometric: enableBiometric,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if tokens := resp.sessionTokens(); tokens != nil {
		if err := c.sessions.Set(ctx, tokens); err != nil {
			return nil, wrapError(KindUnexpected, "persist session", err)
		}
		return &RegisterResult{User: resp.User, Tokens: tokens}, nil
	}
	return &RegisterResult{User: resp.User}, nil
}

// Login submits credentials. Two success shapes exist: tokens in the response
// establish a session immediately; otp_required defers the session to a
// subsequent VerifyOTP.
func (c *Client) Login(ctx context.Context, email, password string, use2FA bool) (*LoginResult, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmailRequired
	}

	var resp authResponse
	err := c.post(ctx, "/auth/login", loginRequest{
		Email:    email,
		Password: password,
		Use2FA:   use2FA,
	}, &resp)
	if err != nil {
		if KindOf(err) == KindAuth {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if resp.OTPRequired {
		return &LoginResult{OTPRequired: true}, nil
	}

	tokens := resp.sessionTokens()
	if tokens == nil {
		return nil, newError(KindUnexpected, "login response carried neither tokens nor otp_required")
	}
	if err := c.sessions.Set(ctx, tokens); err != nil {
		return nil, wrapError(KindUnexpected, "persist session", err)
	}
	return &LoginResult{User: resp.User, Tokens: tokens}, nil
}

// VerifyOTP exchanges a 6-digit code for a session. Format is checked before
// any network call; a server rejection maps to the invalid-or-expired-code
// error regardless of its exact message.
func (c *Client) VerifyOTP(ctx context.Context, code string) (*LoginResult, error) {
	if !isSixDigits(code) {
		return nil, ErrOTPMalformed
	}

	var resp authResponse
	if err := c.post(ctx, "/auth/verify-otp", verifyOTPRequest{Code: code}, &resp); err != nil {
		if KindOf(err) == KindAuth {
			return nil, ErrOTPRejected
		}
		return nil, err
	}

	tokens := resp.sessionTokens()
	if tokens == nil {
		return nil, newError(KindUnexpected, "verify-otp response carried no tokens")
	}
	if err := c.sessions.Set(ctx, tokens); err != nil {
		return nil, wrapError(KindUnexpected, "persist session", err)
	}
	return &LoginResult{User: resp.User, Tokens: tokens}, nil
}

// FacialLogin asks the server to match the enrolled biometric template for
// this device. No credentials travel with the request; the device headers
// identify the enrollment. Low confidence and timeouts both map to the
// biometric kind.
func (c *Client) FacialLogin(ctx context.Context) (*LoginResult, error) {
	var resp authResponse
	if err := c.post(ctx, "/auth/facial-login", struct{}{}, &resp); err != nil {
		switch {
		case KindOf(err) == KindAuth:
			return nil, ErrBiometricNoMatch
		case KindOf(err) == KindNetwork && isTimeout(err):
			return nil, wrapError(KindBiometric, "biometric match timed out", err)
		default:
			return nil, err
		}
	}

	tokens := resp.sessionTokens()
	if tokens == nil {
		return nil, newError(KindUnexpected, "facial-login response carried no tokens")
	}
	if err := c.sessions.Set(ctx, tokens); err != nil {
		return nil, wrapError(KindUnexpected, "persist session", err)
	}
	return &LoginResult{User: resp.User, Tokens: tokens}, nil
}

// Logout revokes the refresh token server-side on a best-effort basis and
// always clears the local session, even when the server call fails. Calling
// it twice leaves the same cleared state as calling it once.
func (c *Client) Logout(ctx context.Context) error {
	refresh, err := c.sessions.RefreshToken(ctx)
	if err != nil {
		refresh = ""
	}

	var serverErr error
	if refresh != "" {
		serverErr = c.post(ctx, "/auth/logout", logoutRequest{Refresh: refresh}, nil)
	}

	if err := c.sessions.Set(ctx, nil); err != nil {
		return wrapError(KindUnexpected, "clear session", err)
	}

	if serverErr != nil {
		// revocation failure is swallowed; local clearing is unconditional
		c.log.Debug().Err(serverErr).Msg("server-side logout failed, session cleared locally")
	}
	return nil
}

// Refresh rotates the token pair. An auth rejection means the refresh token
// was revoked server-side; the local session is cleared so the client lands
// in the canonical logged-out state.
func (c *Client) Refresh(ctx context.Context) error {
	refresh, err := c.sessions.RefreshToken(ctx)
	if err != nil {
		return wrapError(KindUnexpected, "read refresh token", err)
	}
	if refresh == "" {
		return newError(KindAuth, "no refresh token")
	}

	var resp authResponse
	if err := c.post(ctx, "/auth/refresh", refreshRequest{Refresh: refresh}, &resp); err != nil {
		if KindOf(err) == KindAuth {
			_ = c.sessions.Set(ctx, nil)
		}
		return err
	}

	tokens := resp.sessionTokens()
	if tokens == nil {
		return newError(KindUnexpected, "refresh response carried no tokens")
	}
	if tokens.Refresh == "" {
		tokens.Refresh = refresh
	}
	if err := c.sessions.Set(ctx, tokens); err != nil {
		return wrapError(KindUnexpected, "persist session", err)
	}
	return nil
}

// Me fetches the account behind the current session.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var resp authResponse
	if err := c.do(ctx, "GET", "/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, newError(KindUnexpected, "me response carried no user")
	}
	return resp.User, nil
}

// SaveBiometricData uploads the encrypted biometric template captured by the
// enrollment wizard. Called once when enrollment completes.
func (c *Client) SaveBiometricData(ctx context.Context, encrypted string) error {
	if encrypted == "" {
		return newError(KindValidation, "biometric payload is empty")
	}
	return c.post(ctx, "/auth/biometric", biometricRequest{EncryptedData: encrypted}, nil)
}

func isSixDigits(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
