package utils

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// PasswordSpecials 是策略允许的特殊字符集合
const PasswordSpecials = `!@#$%^&*()-=_+{};':"\|,.<>?`

const MinPasswordLen = 8

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(pw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}

// PasswordProblems lists the policy rules pw breaks; empty means acceptable.
func PasswordProblems(pw string) []string {
	var lower, upper, digit, special bool
	n := 0
	for _, r := range pw {
		n++
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSpecials, r):
			special = true
		}
	}
	var out []string
	if n < MinPasswordLen {
		out = append(out, "at least 8 characters")
	}
	if !lower {
		out = append(out, "a lowercase letter")
	}
	if !upper {
		out = append(out, "an uppercase letter")
	}
	if !digit {
		out = append(out, "a digit")
	}
	if !special {
		out = append(out, "a special character")
	}
	return out
}
