package service

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 20
	maxNameLength     = 50
	birthdayLayout    = "2006-01-02"
)

var utoridRegex = regexp.MustCompile(`^[a-zA-Z0-9]{7,8}$`)

// ValidatePassword enforces the password policy: 8-20 characters with at
// least one uppercase letter, one lowercase letter, one digit and one special character.
func ValidatePassword(password string) error {
	n := len([]rune(password))
	if n < minPasswordLength || n > maxPasswordLength {
		return invalid("password", "must be %d-%d characters", minPasswordLength, maxPasswordLength)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsSpace(r):
			return invalid("password", "must not contain whitespace")
		default:
			special = true
		}
	}

	if !upper || !lower || !digit || !special {
		return invalid("password", "must contain an uppercase letter, a lowercase letter, a digit and a special character")
	}
	return nil
}

func normalizeUTORid(utorid string) (string, error) {
	utorid = strings.ToLower(strings.TrimSpace(utorid))
	if !utoridRegex.MatchString(utorid) {
		return "", invalid("utorid", "must be 7-8 alphanumeric characters")
	}
	return utorid, nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > maxNameLength {
		return "", invalid("name", "must be 1-%d characters", maxNameLength)
	}
	return name, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email", "must be a valid email address")
	}
	return email, nil
}

func validateBirthday(birthday string, now time.Time) error {
	t, err := time.Parse(birthdayLayout, birthday)
	if err != nil {
		return invalid("birthday", "must be formatted as YYYY-MM-DD")
	}
	if t.After(now) {
		return invalid("birthday", "must not be in the future")
	}
	return nil
}

func validateAvatarURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("avatarUrl", "must be an absolute http(s) URL")
	}
	return nil
}
