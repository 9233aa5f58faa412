package validation

import (
	"errors"
	"unicode"
)

// bcrypt учитывает только первые 72 байта.
const (
	minPasswordLen = 12
	maxPasswordLen = 72
)

var (
	errPasswordShort   = errors.New("пароль администратора должен быть не менее 12 символов")
	errPasswordLong    = errors.New("пароль не должен превышать 72 байта")
	errPasswordClasses = errors.New("пароль должен содержать заглавные и строчные буквы и цифры")
)

// ValidatePassword проверяет пароль администратора перед хешированием.
func ValidatePassword(password string) error {
	if len([]rune(password)) < minPasswordLen {
		return errPasswordShort
	}
	if len(password) > maxPasswordLen {
		return errPasswordLong
	}

	var classes [3]bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			classes[0] = true
		case unicode.IsLower(r):
			classes[1] = true
		case unicode.IsDigit(r):
			classes[2] = true
		}
	}
	if classes != [3]bool{true, true, true} {
		return errPasswordClasses
	}
	return nil
}
