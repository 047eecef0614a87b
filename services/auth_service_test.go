package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/minestapp/minest-backend/apperrors"
	"github.com/minestapp/minest-backend/dto"
)

func newTestAuthService(t *testing.T) (*AuthService, *fakeUserStore, *fakeSender) {
	t.Helper()
	users := newFakeUserStore()
	sender := &fakeSender{}
	tokens := NewTokenService("access-secret", "refresh-secret", time.Hour, 2*time.Hour)
	auth := NewAuthService(users, tokens, sender, zerolog.Nop())
	return auth, users, sender
}

func registerReq(email string) dto.RegisterRequest {
	return dto.RegisterRequest{
		Email:     email,
		Password:  "pw12345678",
		FirstName: "A",
		LastName:  "B",
	}
}

func TestRegister(t *testing.T) {
	auth, users, sender := newTestAuthService(t)
	ctx := context.Background()

	result, err := auth.Register(ctx, registerReq("a@x.com"))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.Token)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "a@x.com", result.User.Email)
	assert.False(t, result.User.IsEmailVerified)

	stored, err := users.FindByID(ctx, result.User.ID, true)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.VerificationToken)
	assert.Len(t, stored.VerificationToken, 64) // 32 bytes hex-encoded
	assert.Equal(t, result.RefreshToken, stored.RefreshToken)
	assert.NotEqual(t, "pw12345678", stored.PasswordHash)

	require.Len(t, sender.verifications, 1)
	assert.Equal(t, "a@x.com:"+stored.VerificationToken, sender.verifications[0])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	auth, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, registerReq("a@x.com"))
	require.NoError(t, err)

	_, err = auth.Register(ctx, registerReq("A@X.COM")) // case-insensitive
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.From(err).Code)
}

func TestRegisterResultOmitsCredentials(t *testing.T) {
	auth, _, _ := newTestAuthService(t)

	result, err := auth.Register(context.Background(), registerReq("a@x.com"))
	require.NoError(t, err)

	// PublicUser carries no credential fields at all; double-check nothing
	// secret-shaped leaks through the email.
	assert.Empty(t, result.User.CreatedAt)
	assert.NotContains(t, result.User.Email, "token")
}

func TestLogin(t *testing.T) {
	auth, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, registerReq("a@x.com"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  string
	}{
		{"correct credentials", "a@x.com", "pw12345678", ""},
		{"wrong password", "a@x.com", "wrong", "Invalid credentials"},
		{"unknown email", "nobody@x.com", "pw12345678", "Invalid credentials"},
		{"mixed case email", "A@x.COM", "pw12345678", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := auth.Login(ctx, dto.LoginRequest{Email: tt.email, Password: tt.password})
			if tt.wantErr != "" {
				require.Error(t, err)
				appErr := apperrors.From(err)
				assert.Equal(t, apperrors.CodeUnauthorized, appErr.Code)
				assert.Equal(t, tt.wantErr, appErr.Message)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, result.Token)
			assert.NotEmpty(t, result.RefreshToken)
		})
	}
}

func TestLoginOverwritesRefreshSlot(t *testing.T) {
	auth, users, _ := newTestAuthService(t)
	ctx := context.Background()

	reg, err := auth.Register(ctx, registerReq("a@x.com"))
	require.NoError(t, err)

	login, err := auth.Login(ctx, dto.LoginRequest{Email: "a@x.com", Password: "pw12345678"})
	require.NoError(t, err)

	stored, err := users.FindByID(ctx, reg.User.ID, true)
	require.NoError(t, err)
	assert.Equal(t, login.RefreshToken, stored.RefreshToken)

	// The registration-time refresh token is superseded.
	if reg.RefreshToken != login.RefreshToken {
		_, err = auth.RefreshToken(ctx, reg.RefreshToken)
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeUnauthorized, apperrors.From(err).Code)
	}

	token, err := auth.RefreshToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestRefreshToken(t *testing.T) {
	auth, _, _ := newTestAuthService(t)
	ctx := context.Background()

	reg, err := auth.Register(ctx, registerReq("a@x.com"))
	require.NoError(t, err)

	token, err := auth.RefreshToken(ctx, reg.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = auth.RefreshToken(ctx, "not-a-jwt")
	require.Error(t, err)
	assert.Equal(t, "Invalid or expired refresh token", apperrors.From(err).Message)

	// An access token signed with the other key must not refresh.
	_, err = auth.RefreshToken(ctx, reg.Token)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.From(err).Code)
}

func TestRefreshAfterLogout(t *testing.T) {
	auth, _, _ := newTestAuthService(t)
	ctx := context.Background()

	reg, err := auth.Register(ctx, registerReq("a@x.com"))
	require.NoError(t, err)

	require.NoError(t, auth.Logout(ctx, reg.User.ID))

	_, err = auth.RefreshToken(ctx, reg.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.From(err).Code)

	// Logout is idempotent for an existing user.
	require.NoError(t, auth.Logout(ctx, reg.User.ID))

	err = auth.Logout(ctx, bson.NewObjectID())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.From(err).Code)
}

func TestVerifyEmail(t *testing.T) {
	auth, users, sender := newTestAuthService(t)
	ctx := context.Background()

	reg, err := auth.Register(ctx, registerReq("a@x.com"))
	require.NoError(t, err)

	require.Len(t, sender.verifications, 1)
	token := strings.TrimPrefix(sender.verifications[0], "a@x.com:")

	require.NoError(t, auth.VerifyEmail(ctx, token))

	stored, err := users.FindByID(ctx, reg.User.ID, true)
	require.NoError(t, err)
	assert.True(t, stored.IsEmailVerified)
	assert.Empty(t, stored.VerificationToken)

	// The token is single-use.
	err = auth.VerifyEmail(ctx, token)
	require.Error(t, err)
	appErr := apperrors.From(err)
	assert.Equal(t, apperrors.CodeBadRequest, appErr.Code)
	assert.Equal(t, "Invalid verification token", appErr.Message)
}

func TestForgotAndResetPassword(t *testing.T) {
	auth, users, sender := newTestAuthService(t)
	ctx := context.Background()

	reg, err := auth.Register(ctx, registerReq("a@x.com"))
	require.NoError(t, err)

	require.NoError(t, auth.ForgotPassword(ctx, "a@x.com", 30*time.Minute))
	require.Len(t, sender.resets, 1)
	resetToken := strings.TrimPrefix(sender.resets[0], "a@x.com:")

	// Only the digest is stored, never the plaintext token.
	stored, err := users.FindByID(ctx, reg.User.ID, true)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ResetPasswordToken)
	assert.NotEqual(t, resetToken, stored.ResetPasswordToken)
	require.NotNil(t, stored.ResetPasswordExpires)

	require.NoError(t, auth.ResetPassword(ctx, resetToken, "newpassword1"))

	// Old password no longer authenticates, new one does.
	_, err = auth.Login(ctx, dto.LoginRequest{Email: "a@x.com", Password: "pw12345678"})
	require.Error(t, err)
	_, err = auth.Login(ctx, dto.LoginRequest{Email: "a@x.com", Password: "newpassword1"})
	require.NoError(t, err)

	// Reset fields are cleared; the token cannot be replayed.
	stored, err = users.FindByID(ctx, reg.User.ID, true)
	require.NoError(t, err)
	assert.Empty(t, stored.ResetPasswordToken)
	assert.Nil(t, stored.ResetPasswordExpires)

	err = auth.ResetPassword(ctx, resetToken, "anotherpass1")
	require.Error(t, err)
	assert.Equal(t, "Invalid or expired token", apperrors.From(err).Message)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	auth, _, _ := newTestAuthService(t)

	err := auth.ForgotPassword(context.Background(), "nobody@x.com", 30*time.Minute)
	require.Error(t, err)
	appErr := apperrors.From(err)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
	assert.Equal(t, "User with this email does not exist", appErr.Message)
}

func TestForgotPasswordRollsBackOnSendFailure(t *testing.T) {
	auth, users, sender := newTestAuthService(t)
	ctx := context.Background()

	reg, err := auth.Register(ctx, registerReq("a@x.com"))
	require.NoError(t, err)

	sender.failResets = true
	err = auth.ForgotPassword(ctx, "a@x.com", 30*time.Minute)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInternal, apperrors.From(err).Code)

	// No dangling reset token may remain after a failed delivery.
	stored, err := users.FindByID(ctx, reg.User.ID, true)
	require.NoError(t, err)
	assert.Empty(t, stored.ResetPasswordToken)
	assert.Nil(t, stored.ResetPasswordExpires)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	auth, users, sender := newTestAuthService(t)
	ctx := context.Background()

	reg, err := auth.Register(ctx, registerReq("a@x.com"))
	require.NoError(t, err)

	require.NoError(t, auth.ForgotPassword(ctx, "a@x.com", 30*time.Minute))
	resetToken := strings.TrimPrefix(sender.resets[0], "a@x.com:")

	// Age the stored expiry past the window.
	expired := time.Now().UTC().Add(-time.Minute)
	users.users[reg.User.ID].ResetPasswordExpires = &expired

	err = auth.ResetPassword(ctx, resetToken, "newpassword1")
	require.Error(t, err)
	appErr := apperrors.From(err)
	assert.Equal(t, apperrors.CodeBadRequest, appErr.Code)
	assert.Equal(t, "Invalid or expired token", appErr.Message)
}

func TestResetPasswordSurvivesConfirmationFailure(t *testing.T) {
	auth, _, sender := newTestAuthService(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, registerReq("a@x.com"))
	require.NoError(t, err)
	require.NoError(t, auth.ForgotPassword(ctx, "a@x.com", 30*time.Minute))
	resetToken := strings.TrimPrefix(sender.resets[0], "a@x.com:")

	sender.failConfirmations = true
	require.NoError(t, auth.ResetPassword(ctx, resetToken, "newpassword1"))

	// The committed password change wins over the lost confirmation.
	_, err = auth.Login(ctx, dto.LoginRequest{Email: "a@x.com", Password: "newpassword1"})
	require.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	auth, _, sender := newTestAuthService(t)
	ctx := context.Background()

	reg, err := auth.Register(ctx, registerReq("a@x.com"))
	require.NoError(t, err)

	err = auth.ChangePassword(ctx, reg.User.ID, dto.ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "newpassword1",
	})
	require.Error(t, err)
	appErr := apperrors.From(err)
	assert.Equal(t, apperrors.CodeUnauthorized, appErr.Code)
	assert.Equal(t, "Current password is incorrect", appErr.Message)

	err = auth.ChangePassword(ctx, reg.User.ID, dto.ChangePasswordRequest{
		CurrentPassword: "pw12345678",
		NewPassword:     "newpassword1",
	})
	require.NoError(t, err)
	assert.Len(t, sender.confirmations, 1)

	_, err = auth.Login(ctx, dto.LoginRequest{Email: "a@x.com", Password: "newpassword1"})
	require.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	auth, _, _ := newTestAuthService(t)
	ctx := context.Background()

	reg, err := auth.Register(ctx, registerReq("a@x.com"))
	require.NoError(t, err)
	_, err = auth.Register(ctx, registerReq("taken@x.com"))
	require.NoError(t, err)

	first := "Changed"
	updated, err := auth.UpdateProfile(ctx, reg.User.ID, dto.UpdateProfileRequest{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Changed", updated.FirstName)
	assert.Equal(t, "a@x.com", updated.Email)

	taken := "taken@x.com"
	_, err = auth.UpdateProfile(ctx, reg.User.ID, dto.UpdateProfileRequest{Email: &taken})
	require.Error(t, err)
	appErr := apperrors.From(err)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
	assert.Equal(t, "Email is already in use", appErr.Message)

	// Re-submitting the current email is a no-op, not a conflict.
	same := "a@x.com"
	updated, err = auth.UpdateProfile(ctx, reg.User.ID, dto.UpdateProfileRequest{Email: &same})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", updated.Email)
}

func TestGetProfile(t *testing.T) {
	auth, _, _ := newTestAuthService(t)
	ctx := context.Background()

	reg, err := auth.Register(ctx, registerReq("a@x.com"))
	require.NoError(t, err)

	profile, err := auth.GetProfile(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", profile.Email)
	require.NotNil(t, profile.CreatedAt)

	_, err = auth.GetProfile(ctx, bson.NewObjectID())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.From(err).Code)
}
