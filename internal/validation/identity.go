package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// MaxPhoneLength длина колонки phone_number.
const MaxPhoneLength = 15

var (
	phoneRegex        = regexp.MustCompile(`^\+?1?\d{9,15}$`)
	emailLocalRegex   = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	emailDomainRegex  = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	usernameCharRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	if !strings.Contains(email, "@") {
		return fmt.Errorf("email должен содержать символ @")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart, domainPart := parts[0], parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}
	if !emailLocalRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}
	if !emailDomainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// NormalizeEmail обрезает пробелы и приводит к нижнему регистру только домен.
// Локальная часть остаётся как есть.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

// ValidatePhone проверяет номер в формате +999999999, от 9 до 15 цифр.
func ValidatePhone(phone string) error {
	if phone == "" {
		return fmt.Errorf("номер телефона обязателен")
	}
	if len(phone) > MaxPhoneLength {
		return fmt.Errorf("номер телефона должен быть не длиннее %d символов", MaxPhoneLength)
	}
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("номер телефона должен быть в формате '+999999999', от 9 до 15 цифр")
	}
	return nil
}

// ValidateUsername проверяет явно заданное имя пользователя.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}

	username = strings.TrimSpace(username)

	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	if !usernameCharRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только буквы, цифры и подчеркивание")
	}

	if unicode.IsDigit(rune(username[0])) {
		return fmt.Errorf("имя пользователя не может начинаться с цифры")
	}

	return nil
}
