package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinJobTitleLength       = 3
	MaxJobTitleLength       = 200
	MinJobDescriptionLength = 10
	MaxJobDescriptionLength = 5000
	MaxOfferMessageLength   = 2000
	MaxResponseLength       = 1000
)

var phoneRegex = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}
	if len(parts[0]) == 0 || len(parts[0]) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if len(parts[1]) == 0 || len(parts[1]) > 255 || !strings.Contains(parts[1], ".") {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}
	return nil
}

// ValidatePhone проверяет номер телефона в формате E.164.
func ValidatePhone(phone string) error {
	if phone == "" {
		return fmt.Errorf("номер телефона обязателен")
	}
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("номер телефона должен быть в формате E.164, например +77011234567")
	}
	return nil
}

// ValidateJobTitle проверяет заголовок задания.
func ValidateJobTitle(title string) error {
	if title == "" {
		return fmt.Errorf("заголовок задания обязателен")
	}
	return ValidateLength("заголовок задания", title, MinJobTitleLength, MaxJobTitleLength)
}

// ValidateJobDescription проверяет описание задания.
func ValidateJobDescription(description string) error {
	if description == "" {
		return fmt.Errorf("описание задания обязательно")
	}
	return ValidateLength("описание задания", description, MinJobDescriptionLength, MaxJobDescriptionLength)
}

// ValidateOfferMessage проверяет сообщение к предложению.
func ValidateOfferMessage(message string) error {
	return ValidateLength("сообщение", message, 0, MaxOfferMessageLength)
}

// ValidateResponseMessage проверяет ответ клиента или причину отказа.
func ValidateResponseMessage(message string) error {
	return ValidateLength("ответ", strings.TrimSpace(message), 0, MaxResponseLength)
}
