package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/minestapp/minest-backend/apperrors"
	"github.com/minestapp/minest-backend/dto"
	"github.com/minestapp/minest-backend/models"
	"github.com/minestapp/minest-backend/store"
	"github.com/minestapp/minest-backend/utils"
)

// AuthResult is the register/login response: a token pair plus the public
// view of the user. Credential fields never appear here.
type AuthResult struct {
	Token        string            `json:"token"`
	RefreshToken string            `json:"refreshToken"`
	User         models.PublicUser `json:"user"`
}

// AuthService orchestrates the account lifecycle against the credential
// store, the token service and the email sender. All collaborators are
// injected; there are no package-level singletons.
type AuthService struct {
	users  store.UserStore
	tokens *TokenService
	mailer EmailSender
	lg     zerolog.Logger
}

func NewAuthService(users store.UserStore, tokens *TokenService, mailer EmailSender, lg zerolog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		mailer: mailer,
		lg:     lg.With().Str("component", "auth_service").Logger(),
	}
}

func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*AuthResult, error) {
	email := utils.NormalizeEmail(req.Email)

	if _, err := s.users.FindByEmail(ctx, email, false); err == nil {
		return nil, apperrors.NewConflict("User with this email already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NewInternal("failed to check existing user", err)
	}

	verificationToken, err := utils.GenerateOpaqueToken()
	if err != nil {
		return nil, apperrors.NewInternal("failed to generate verification token", err)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.NewInternal("failed to hash password", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		Email:             email,
		PasswordHash:      hash,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Role:              models.RoleUser,
		Plan:              models.PlanFree,
		IsEmailVerified:   false,
		VerificationToken: verificationToken,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.NewConflict("User with this email already exists")
		}
		return nil, apperrors.NewInternal("failed to create user", err)
	}

	if err := s.mailer.SendVerificationEmail(ctx, user.Email, verificationToken); err != nil {
		// The account exists either way; the token can be re-sent later.
		s.lg.Error().Err(err).Str("email", user.Email).Msg("failed to send verification email")
	}

	return s.issueTokenPair(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*AuthResult, error) {
	email := utils.NormalizeEmail(req.Email)

	// Unknown email and wrong password fail identically so error text does
	// not reveal whether an account exists.
	user, err := s.users.FindByEmail(ctx, email, true)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NewUnauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, apperrors.NewInternal("failed to load user", err)
	}

	if err := utils.CheckPassword(user.PasswordHash, req.Password); err != nil {
		return nil, apperrors.NewUnauthorized("Invalid credentials")
	}

	return s.issueTokenPair(ctx, user)
}

// issueTokenPair mints an access+refresh pair and overwrites the user's
// single refresh-token slot.
func (s *AuthService) issueTokenPair(ctx context.Context, user *models.User) (*AuthResult, error) {
	accessToken, err := s.tokens.IssueAccessToken(user.ID.Hex())
	if err != nil {
		return nil, apperrors.NewInternal("failed to issue access token", err)
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user.ID.Hex())
	if err != nil {
		return nil, apperrors.NewInternal("failed to issue refresh token", err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return nil, apperrors.NewInternal("failed to store refresh token", err)
	}

	return &AuthResult{
		Token:        accessToken,
		RefreshToken: refreshToken,
		User:         user.Public(),
	}, nil
}

// RefreshToken trades a valid refresh token for a new access token. The
// refresh token itself is not rotated, but must exactly match the user's
// stored slot, so a superseded token is rejected even before its expiry.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	invalid := apperrors.NewUnauthorized("Invalid or expired refresh token")

	claims, err := s.tokens.Verify(refreshToken, RefreshToken)
	if err != nil {
		return "", invalid
	}

	userID, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return "", invalid
	}

	user, err := s.users.FindByID(ctx, userID, true)
	if err != nil || user.RefreshToken != refreshToken {
		return "", invalid
	}

	accessToken, err := s.tokens.IssueAccessToken(user.ID.Hex())
	if err != nil {
		return "", apperrors.NewInternal("failed to issue access token", err)
	}
	return accessToken, nil
}

func (s *AuthService) Logout(ctx context.Context, userID bson.ObjectID) error {
	err := s.users.ClearRefreshToken(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewNotFound("User not found")
	}
	if err != nil {
		return apperrors.NewInternal("failed to clear refresh token", err)
	}
	return nil
}

// ForgotPassword issues a reset token valid for the configured window. Only
// a digest is persisted; the plaintext goes out by email. A failed send
// rolls the reset fields back so no orphaned token remains.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, ttl time.Duration) error {
	user, err := s.users.FindByEmail(ctx, utils.NormalizeEmail(email), false)
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewNotFound("User with this email does not exist")
	}
	if err != nil {
		return apperrors.NewInternal("failed to load user", err)
	}

	resetToken, err := utils.GenerateOpaqueToken()
	if err != nil {
		return apperrors.NewInternal("failed to generate reset token", err)
	}

	expires := time.Now().UTC().Add(ttl)
	if err := s.users.SetResetFields(ctx, user.ID, utils.DigestToken(resetToken), expires); err != nil {
		return apperrors.NewInternal("failed to store reset token", err)
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, resetToken); err != nil {
		if clearErr := s.users.ClearResetFields(ctx, user.ID); clearErr != nil {
			s.lg.Error().Err(clearErr).Str("email", user.Email).Msg("failed to roll back reset fields")
		}
		s.lg.Error().Err(err).Str("email", user.Email).Msg("failed to send password reset email")
		return apperrors.NewInternal("Failed to send password reset email", err)
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	user, err := s.users.FindByResetDigest(ctx, utils.DigestToken(token), time.Now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewBadRequest("Invalid or expired token")
	}
	if err != nil {
		return apperrors.NewInternal("failed to look up reset token", err)
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return apperrors.NewInternal("failed to hash password", err)
	}
	if err := s.users.SetPassword(ctx, user.ID, hash, true); err != nil {
		return apperrors.NewInternal("failed to update password", err)
	}

	// Best effort: the password is already changed, a lost confirmation
	// must not fail the operation.
	if err := s.mailer.SendPasswordChangeConfirmation(ctx, user.Email); err != nil {
		s.lg.Error().Err(err).Str("email", user.Email).Msg("failed to send password change confirmation")
	}
	return nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.users.FindByVerificationToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewBadRequest("Invalid verification token")
	}
	if err != nil {
		return apperrors.NewInternal("failed to look up verification token", err)
	}

	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return apperrors.NewInternal("failed to mark email verified", err)
	}
	return nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID bson.ObjectID, req dto.ChangePasswordRequest) error {
	user, err := s.users.FindByID(ctx, userID, true)
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewNotFound("User not found")
	}
	if err != nil {
		return apperrors.NewInternal("failed to load user", err)
	}

	if err := utils.CheckPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		return apperrors.NewUnauthorized("Current password is incorrect")
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.NewInternal("failed to hash password", err)
	}
	if err := s.users.SetPassword(ctx, user.ID, hash, false); err != nil {
		return apperrors.NewInternal("failed to update password", err)
	}

	if err := s.mailer.SendPasswordChangeConfirmation(ctx, user.Email); err != nil {
		s.lg.Error().Err(err).Str("email", user.Email).Msg("failed to send password change confirmation")
	}
	return nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID bson.ObjectID, req dto.UpdateProfileRequest) (*models.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID, false)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NewNotFound("User not found")
	}
	if err != nil {
		return nil, apperrors.NewInternal("failed to load user", err)
	}

	set := bson.M{}
	if req.FirstName != nil {
		set["firstName"] = *req.FirstName
	}
	if req.LastName != nil {
		set["lastName"] = *req.LastName
	}
	if req.Email != nil {
		email := utils.NormalizeEmail(*req.Email)
		if email != user.Email {
			if _, err := s.users.FindByEmail(ctx, email, false); err == nil {
				return nil, apperrors.NewConflict("Email is already in use")
			} else if !errors.Is(err, store.ErrNotFound) {
				return nil, apperrors.NewInternal("failed to check email", err)
			}
			set["email"] = email
		}
	}

	if len(set) == 0 {
		public := user.Public()
		return &public, nil
	}

	updated, err := s.users.UpdateProfile(ctx, userID, set)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperrors.NewConflict("Email is already in use")
	}
	if err != nil {
		return nil, apperrors.NewInternal("failed to update profile", err)
	}

	public := updated.Public()
	return &public, nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID bson.ObjectID) (*models.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID, false)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NewNotFound("User not found")
	}
	if err != nil {
		return nil, apperrors.NewInternal("failed to load user", err)
	}

	public := user.PublicWithCreatedAt()
	return &public, nil
}
