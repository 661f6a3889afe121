package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

var ErrAlreadyAdmin = errors.New("user is already an admin")

// AdminProfile is present exactly when Role is admin.
type AdminProfile struct {
	ClubCategory string `bson:"clubCategory" json:"clubCategory"`
	ClubName     string `bson:"clubName" json:"clubName"`
	IDCardPath   string `bson:"idCardPath" json:"idCardPath"`
}

type User struct {
	ID                string        `bson:"_id" json:"_id"`
	FullName          string        `bson:"fullName" json:"fullName"`
	Email             string        `bson:"email" json:"email"`
	USN               string        `bson:"usn" json:"usn"`
	PasswordHash      string        `bson:"password" json:"-"`
	EncryptedPassword string        `bson:"plainPassword,omitempty" json:"-"`
	Role              Role          `bson:"role" json:"role"`
	Admin             *AdminProfile `bson:"admin,omitempty" json:"-"`
	CreatedAt         time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time     `bson:"updatedAt" json:"updatedAt"`
}

func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }
func NormalizeUSN(usn string) string     { return strings.ToUpper(strings.TrimSpace(usn)) }

func NewStudent(fullName, email, usn string) User {
	now := time.Now().UTC()
	return User{
		ID:        uuid.NewString(),
		FullName:  strings.TrimSpace(fullName),
		Email:     NormalizeEmail(email),
		USN:       NormalizeUSN(usn),
		Role:      RoleStudent,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewClubAdmin builds a fresh admin for a claimed club; it has no real USN,
// so a unique synthetic one is generated.
func NewClubAdmin(email string, p AdminProfile) User {
	now := time.Now().UTC()
	return User{
		ID:        uuid.NewString(),
		FullName:  p.ClubName + " Admin",
		Email:     NormalizeEmail(email),
		USN:       SyntheticAdminUSN(),
		Role:      RoleAdmin,
		Admin:     &p,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func SyntheticAdminUSN() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ADMIN-" + strings.ToUpper(id[:12])
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin && u.Admin != nil }

// PromoteToAdmin is the only student→admin transition. The record keeps its
// id, name, email and USN.
func (u *User) PromoteToAdmin(p AdminProfile) error {
	if u.Role == RoleAdmin {
		return ErrAlreadyAdmin
	}
	u.Role = RoleAdmin
	u.Admin = &p
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// UserProfile is the public shape of a user (no secrets).
type UserProfile struct {
	ID           string  `json:"_id"`
	FullName     string  `json:"fullName"`
	Email        string  `json:"email"`
	USN          string  `json:"usn"`
	Role         Role    `json:"role"`
	ClubCategory *string `json:"clubCategory"`
	ClubName     *string `json:"clubName"`
}

func (u *User) Profile() UserProfile {
	p := UserProfile{ID: u.ID, FullName: u.FullName, Email: u.Email, USN: u.USN, Role: u.Role}
	if u.Admin != nil {
		cat, name := u.Admin.ClubCategory, u.Admin.ClubName
		p.ClubCategory, p.ClubName = &cat, &name
	}
	return p
}

func (u *User) ClubName() string {
	if u.Admin == nil {
		return ""
	}
	return u.Admin.ClubName
}
