// Package services holds the business rules behind each endpoint. Handlers
// stay thin: they bind input, call a service and write its result.
package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"sync"

	"go.uber.org/zap"

	"collegeevents/logger"
	"collegeevents/mailer"
	"collegeevents/models"
	"collegeevents/utils"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgClaimFields        = "Club category, club name, email, and ID card (JPG) are all required"
	msgClaimPassword      = "Password is required and must be at least 6 characters"
	msgClubTaken          = "This club is either invalid or has already been claimed by another admin"
	msgAdminExists        = `This email is already registered as an admin. Please use the "Returning Admin" login instead.`
	msgAdminLoginFailed   = "Server error during admin login"
	msgMailFailed         = "Failed to send email. Please try again later."
)

type AuthDeps struct {
	Users   models.UserRepository
	Clubs   models.ClubRepository
	Tokens  *utils.TokenManager
	Vault   *utils.PasswordVault
	Mailer  mailer.Sender // nil = 沒設定 SMTP
	Uploads *utils.Uploader
	Cache   *utils.CacheInvalidator

	BcryptCost         int
	TempPasswordPrefix string
}

type AuthService struct {
	AuthDeps

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(d AuthDeps) *AuthService {
	return &AuthService{AuthDeps: d}
}

// burnCompare 帳號不存在時也跑一次 bcrypt，回應時間跟密碼錯誤差不多
func (s *AuthService) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = utils.HashPassword("no-such-account", s.BcryptCost)
	})
	utils.CheckPasswordHash(password, s.dummyHash)
}

// Session is what every successful sign-in hands back.
type Session struct {
	Token string
	User  models.UserProfile
}

// setPassword derives both stored forms of a password. Every place that
// sets a password goes through here.
func (s *AuthService) setPassword(u *models.User, plain string) error {
	hash, err := utils.HashPassword(plain, s.BcryptCost)
	if err != nil {
		return utils.Internal("Could not hash password", err)
	}
	enc, err := s.Vault.Encrypt(plain)
	if err != nil {
		return utils.Internal("Could not encrypt password", err)
	}
	u.PasswordHash = hash
	u.EncryptedPassword = enc
	return nil
}

func (s *AuthService) session(u *models.User) (Session, error) {
	token, err := s.Tokens.Generate(u.ID)
	if err != nil {
		return Session{}, utils.Internal("Could not issue token", err)
	}
	return Session{Token: token, User: u.Profile()}, nil
}

/* -------------------- Student -------------------- */

type SignupInput struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,emailaddr"`
	USN      string `json:"usn" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (Session, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.USN = strings.TrimSpace(in.USN)
	if err := utils.Validate(in,
		utils.Rule{Tag: "required", Message: "All fields are required"},
		utils.Rule{Tag: "min", Message: "Password must be at least 6 characters"},
		utils.Rule{Tag: "emailaddr", Message: "Please provide a valid email address"},
	); err != nil {
		return Session{}, err
	}

	u := models.NewStudent(in.FullName, in.Email, in.USN)
	if _, err := s.Users.GetByEmail(ctx, u.Email); err == nil {
		return Session{}, utils.Conflict("Email already registered")
	} else if !errors.Is(err, models.ErrNotFound) {
		return Session{}, utils.Internal("Server error during signup", err)
	}
	if _, err := s.Users.GetByUSN(ctx, u.USN); err == nil {
		return Session{}, utils.Conflict("USN already registered")
	} else if !errors.Is(err, models.ErrNotFound) {
		return Session{}, utils.Internal("Server error during signup", err)
	}

	if err := s.setPassword(&u, in.Password); err != nil {
		return Session{}, err
	}
	if err := s.Users.Create(ctx, &u); err != nil {
		// 兩個請求同時註冊同一 email，唯一索引擋下
		if errors.Is(err, models.ErrDuplicate) {
			return Session{}, utils.Conflict("Email already registered")
		}
		return Session{}, utils.Internal("Server error during signup", err)
	}
	logger.Log.Info("student signed up", zap.String("userId", u.ID))
	return s.session(&u)
}

type CredentialsInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *AuthService) Signin(ctx context.Context, in CredentialsInput) (Session, error) {
	if err := utils.Validate(in, utils.Rule{Tag: "required", Message: "Email and password are required"}); err != nil {
		return Session{}, err
	}
	u, err := s.Users.GetByEmail(ctx, models.NormalizeEmail(in.Email))
	if errors.Is(err, models.ErrNotFound) {
		s.burnCompare(in.Password)
		return Session{}, utils.Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return Session{}, utils.Internal("Server error during login", err)
	}
	if !utils.CheckPasswordHash(in.Password, u.PasswordHash) {
		return Session{}, utils.Unauthorized(msgInvalidCredentials)
	}
	return s.session(&u)
}

/* -------------------- Admin -------------------- */

type ClaimInput struct {
	ClubCategory string                `json:"clubCategory" validate:"required"`
	ClubName     string                `json:"clubName" validate:"required"`
	Email        string                `json:"email" validate:"required"`
	Password     string                `json:"password" validate:"required,min=6"`
	IDCard       *multipart.FileHeader `json:"idCard" validate:"required"`
}

// ClaimClub gives the caller admin rights over an unclaimed club. A student
// with the same email is promoted in place; anyone else gets a new admin
// account. The club flip is a single conditional update, so two claimers
// racing for the same club cannot both win.
func (s *AuthService) ClaimClub(ctx context.Context, in ClaimInput) (Session, error) {
	in.ClubCategory = strings.TrimSpace(in.ClubCategory)
	in.ClubName = strings.TrimSpace(in.ClubName)
	in.Email = strings.TrimSpace(in.Email)
	if err := utils.Validate(in,
		utils.Rule{Tag: "clubCategory.required", Message: msgClaimFields},
		utils.Rule{Tag: "clubName.required", Message: msgClaimFields},
		utils.Rule{Tag: "email.required", Message: msgClaimFields},
		utils.Rule{Tag: "idCard.required", Message: msgClaimFields},
		utils.Rule{Tag: "password.required", Message: msgClaimPassword},
		utils.Rule{Tag: "password.min", Message: msgClaimPassword},
	); err != nil {
		return Session{}, err
	}
	email := models.NormalizeEmail(in.Email)

	if _, err := s.Clubs.FindActive(ctx, in.ClubName, in.ClubCategory); errors.Is(err, models.ErrNotFound) {
		return Session{}, utils.Conflict(msgClubTaken)
	} else if err != nil {
		return Session{}, utils.Internal(msgAdminLoginFailed, err)
	}

	existing, err := s.Users.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.Role == models.RoleAdmin:
		return Session{}, utils.Conflict(msgAdminExists)
	case err != nil && !errors.Is(err, models.ErrNotFound):
		return Session{}, utils.Internal(msgAdminLoginFailed, err)
	}
	student := err == nil

	idCard, err := s.Uploads.SaveRaw(in.IDCard)
	if err != nil {
		return Session{}, err
	}

	club, err := s.Clubs.Claim(ctx, in.ClubName, in.ClubCategory)
	if err != nil {
		s.Uploads.Remove(idCard)
		if errors.Is(err, models.ErrNotFound) {
			return Session{}, utils.Conflict(msgClubTaken)
		}
		return Session{}, utils.Internal(msgAdminLoginFailed, err)
	}

	profile := models.AdminProfile{ClubCategory: in.ClubCategory, ClubName: in.ClubName, IDCardPath: idCard}
	u, err := s.persistAdmin(ctx, student, existing, email, profile, in.Password)
	if err != nil {
		// 使用者沒寫成功，社團要還回去
		if rerr := s.Clubs.Release(ctx, club.ID); rerr != nil {
			logger.Log.Error("release club failed", zap.String("club", club.ClubName), zap.Error(rerr))
		}
		s.Uploads.Remove(idCard)
		return Session{}, err
	}

	s.Cache.PurgeClubs(ctx)
	logger.Log.Info("club claimed",
		zap.String("club", club.ClubName),
		zap.String("userId", u.ID),
		zap.Bool("promoted", student),
	)
	return s.session(&u)
}

func (s *AuthService) persistAdmin(ctx context.Context, promote bool, u models.User, email string, p models.AdminProfile, password string) (models.User, error) {
	if promote {
		if err := u.PromoteToAdmin(p); err != nil {
			return models.User{}, utils.Conflict(msgAdminExists)
		}
		if err := s.setPassword(&u, password); err != nil {
			return models.User{}, err
		}
		// 條件式寫入：同一個學生同時認領兩個社團，只有一個會成功
		if err := s.Users.Promote(ctx, &u); errors.Is(err, models.ErrNotFound) {
			return models.User{}, utils.Conflict(msgAdminExists)
		} else if err != nil {
			return models.User{}, utils.Internal(msgAdminLoginFailed, err)
		}
		return u, nil
	}

	u = models.NewClubAdmin(email, p)
	if err := s.setPassword(&u, password); err != nil {
		return models.User{}, err
	}
	if err := s.Users.Create(ctx, &u); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return models.User{}, utils.Conflict(msgAdminExists)
		}
		return models.User{}, utils.Internal(msgAdminLoginFailed, err)
	}
	return u, nil
}

func (s *AuthService) AdminRelogin(ctx context.Context, in CredentialsInput) (Session, error) {
	if err := utils.Validate(in, utils.Rule{Tag: "required", Message: "Email and password are required"}); err != nil {
		return Session{}, err
	}
	u, err := s.Users.GetByEmail(ctx, models.NormalizeEmail(in.Email))
	if err == nil && !u.IsAdmin() {
		err = models.ErrNotFound
	}
	if errors.Is(err, models.ErrNotFound) {
		s.burnCompare(in.Password)
		return Session{}, utils.Unauthorized("No admin account found with this email")
	}
	if err != nil {
		return Session{}, utils.Internal(msgAdminLoginFailed, err)
	}
	if !utils.CheckPasswordHash(in.Password, u.PasswordHash) {
		return Session{}, utils.Unauthorized(msgInvalidCredentials)
	}
	return s.session(&u)
}

type ResetPasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

func (s *AuthService) ResetPassword(ctx context.Context, userID string, in ResetPasswordInput) error {
	if err := utils.Validate(in,
		utils.Rule{Tag: "required", Message: "Current password and new password are required"},
		utils.Rule{Tag: "min", Message: "New password must be at least 6 characters"},
	); err != nil {
		return err
	}
	u, err := s.Users.GetByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return utils.NotFound("User not found")
	}
	if err != nil {
		return utils.Internal("Failed to reset password", err)
	}
	if !utils.CheckPasswordHash(in.CurrentPassword, u.PasswordHash) {
		return utils.Unauthorized("Current password is incorrect")
	}
	if err := s.setPassword(&u, in.NewPassword); err != nil {
		return err
	}
	if err := s.Users.Update(ctx, &u); err != nil {
		return utils.Internal("Failed to reset password", err)
	}
	return nil
}

/* -------------------- Recovery -------------------- */

// RecoveryResult tells the caller whether the original password was sent
// back or a temporary one replaced it.
type RecoveryResult struct {
	Reset bool
}

func (r RecoveryResult) Message() string {
	if r.Reset {
		return "A new password has been sent to your email address"
	}
	return "Your password has been sent to your email address"
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) (RecoveryResult, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return RecoveryResult{}, utils.Validation("Email is required")
	}
	if s.Mailer == nil {
		return RecoveryResult{}, utils.Unavailable("Password recovery email is not configured. Please contact the administrator.")
	}
	u, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return RecoveryResult{}, utils.NotFound("No account found with this email")
	}
	if err != nil {
		return RecoveryResult{}, utils.Internal(msgMailFailed, err)
	}

	var res RecoveryResult
	prev := u
	password := ""
	if u.EncryptedPassword != "" {
		if p, err := s.Vault.Decrypt(u.EncryptedPassword); err == nil {
			password = p
		} else {
			logger.Log.Warn("decrypt stored password failed, issuing temporary one",
				zap.String("userId", u.ID), zap.Error(err))
		}
	}
	if password == "" {
		res.Reset = true
		if password, err = utils.TempPassword(s.TempPasswordPrefix); err != nil {
			return RecoveryResult{}, utils.Internal(msgMailFailed, err)
		}
		if err := s.setPassword(&u, password); err != nil {
			return RecoveryResult{}, err
		}
		if err := s.Users.Update(ctx, &u); err != nil {
			return RecoveryResult{}, utils.Internal(msgMailFailed, err)
		}
	}

	msg, err := mailer.PasswordMail{To: u.Email, FullName: u.FullName, Password: password, Reset: res.Reset}.Message()
	if err != nil {
		return RecoveryResult{}, utils.Internal(msgMailFailed, err)
	}
	if err := s.Mailer.Send(ctx, msg); err != nil {
		if res.Reset {
			// 信沒寄出去，新密碼使用者拿不到，把舊的寫回去
			if rerr := s.Users.Update(ctx, &prev); rerr != nil {
				logger.Log.Error("restore password after mail failure failed",
					zap.String("userId", u.ID), zap.Error(rerr))
			}
		}
		return RecoveryResult{}, utils.Internal(msgMailFailed, err)
	}
	return res, nil
}

// ResolveUser backs the bearer-token middleware.
func (s *AuthService) ResolveUser(ctx context.Context, token string) (models.User, error) {
	id, err := s.Tokens.Verify(token)
	if err != nil {
		return models.User{}, utils.Unauthorized("Token invalid or expired")
	}
	u, err := s.Users.GetByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return models.User{}, utils.Unauthorized("User not found")
	}
	if err != nil {
		return models.User{}, utils.Internal("Server error", err)
	}
	return u, nil
}
