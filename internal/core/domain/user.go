package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"

	// Role ids fixed by the seed; users default to the non-privileged one.
	AdminRoleID = 1
	UserRoleID  = 2

	// TestEmailDomain marks synthetic accounts created by the bulk generator.
	TestEmailDomain = "@test.com"
)

// Language is the preferred UI language of a user.
type Language string

const (
	LanguageEN Language = "EN"
	LanguagePL Language = "PL"

	DefaultLanguage = LanguageEN
)

var validLanguages = map[Language]struct{}{
	LanguageEN: {},
	LanguagePL: {},
}

// ParseLanguage is the strict path used when a user changes language: values
// outside the supported set are rejected.
func ParseLanguage(s string) (Language, error) {
	lang := Language(s)
	if _, ok := validLanguages[lang]; !ok {
		return "", ErrUpdateArguments
	}
	return lang, nil
}

// languageOrDefault is the lenient path used when constructing users: an
// unsupported value silently falls back to DefaultLanguage.
func languageOrDefault(s string) Language {
	if _, ok := validLanguages[Language(s)]; ok {
		return Language(s)
	}
	return DefaultLanguage
}

var emailPattern = regexp.MustCompile(`^[^@\s'"]{1,64}@[a-z0-9\-]+\.[a-z0-9]+$`)

// ValidEmail reports whether s looks like an address this service accepts.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Role is a named privilege level.
type Role struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// User models an account. PasswordHash never leaves the service.
type User struct {
	ID               string
	RoleID           int
	Username         string
	PasswordHash     string
	Email            string
	RegistrationDate time.Time
	Language         Language
}

// NewUserParams holds the inputs accepted when constructing a User. Zero
// values select the defaults.
type NewUserParams struct {
	ID           string
	RoleID       int
	Username     string
	PasswordHash string
	Email        string
	Language     string
}

// NewUser builds a User, generating an id and registration timestamp.
func NewUser(p NewUserParams) *User {
	id := p.ID
	if id == "" {
		id = ksuid.New().String()
	}
	roleID := p.RoleID
	if roleID == 0 {
		roleID = UserRoleID
	}
	return &User{
		ID:               id,
		RoleID:           roleID,
		Username:         p.Username,
		PasswordHash:     p.PasswordHash,
		Email:            p.Email,
		RegistrationDate: time.Now().UTC().Truncate(time.Second),
		Language:         languageOrDefault(p.Language),
	}
}

// IsTestAccount reports whether the user was produced by the bulk generator.
func (u *User) IsTestAccount() bool {
	return strings.HasSuffix(u.Email, TestEmailDomain)
}

const registrationDateLayout = "2006-01-02 15:04:05"

// UserView is the public projection of a User.
type UserView struct {
	ID               string   `json:"id"`
	RoleID           int      `json:"role_id"`
	Username         string   `json:"username"`
	Email            string   `json:"email"`
	Language         Language `json:"language"`
	RegistrationDate string   `json:"registration_date"`
}

// View returns the public projection of u.
func (u *User) View() UserView {
	return UserView{
		ID:               u.ID,
		RoleID:           u.RoleID,
		Username:         u.Username,
		Email:            u.Email,
		Language:         u.Language,
		RegistrationDate: u.RegistrationDate.Format(registrationDateLayout),
	}
}
