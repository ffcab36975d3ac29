package entity

import (
	"time"
)

// System account used as the audit author for self-service flows
// (registration has no authenticated actor yet) and by the seeder.
const (
	SystemUserID   = "00000001-0000-7000-8000-000000000001"
	SystemUserName = "Administrator"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// User is the aggregate root for the user domain.
//
// Password stays nil until the account completes verification; an account
// with status=false and no password hash is an unverified registration.
// VerifyUserToken and VerifyTokenExpiration are set together at registration
// and cleared together on successful verification. Birthday is stored as
// split day/month/year columns, all present or all absent.
type User struct {
	ID            string
	Username      string
	Email         string
	Password      *string // bcrypt hash
	FirstName     string
	LastName      string
	Gender        string
	BirthdayDay   *int
	BirthdayMonth *int
	BirthdayYear  *int
	Province      string
	District      string
	Ward          string
	Address       string
	Phone         *string
	Avatar        *string // object storage path, not a servable URL
	Status        bool

	EmailVerifiedAt       *time.Time
	VerifyUserToken       *string
	VerifyTokenExpiration *time.Time

	CreatedBy   string
	UpdatedBy   string
	CreatorName string
	UpdaterName string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// HasVerifiedEmail reports whether the account completed verification.
func (u *User) HasVerifiedEmail() bool {
	return u.EmailVerifiedAt != nil
}

// IsDeleted reports whether the account was soft-deleted.
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// FullName joins first and last name for display purposes.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
