package identikit

import (
	"context"

	"github.com/identikit/identikit/gateway"
)

// AuthAPI is the slice of the credential gateway the flow controller drives.
// *gateway.Client satisfies it; tests substitute scripted fakes through
// [Builder.WithAuthAPI].
type AuthAPI interface {
	Register(ctx context.Context, email, password, confirm string, enableBiometric bool) (*gateway.RegisterResult, error)
	Login(ctx context.Context, email, password string, use2FA bool) (*gateway.LoginResult, error)
	VerifyOTP(ctx context.Context, code string) (*gateway.LoginResult, error)
	FacialLogin(ctx context.Context) (*gateway.LoginResult, error)
	Logout(ctx context.Context) error
	SaveBiometricData(ctx context.Context, encrypted string) error
}

var _ AuthAPI = (*gateway.Client)(nil)
