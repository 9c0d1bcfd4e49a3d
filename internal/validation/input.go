package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength       = 3
	MaxUsernameLength       = 30
	MaxNameLength           = 255
	MaxNeighbourhoodLength  = 150
	MaxTagKeyLength         = 100
	MaxReviewTitleLength    = 255
	MaxReviewDescLength     = 5000
	MaxLocationLength       = 255
	MaxPersonNameLength     = 100
	MaxProfileAddressLength = 500
)

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

// ValidateRequired непустая строка не длиннее max символов.
func ValidateRequired(fieldName, value string, max int) error {
	if err := ValidateNonEmpty(fieldName, value); err != nil {
		return err
	}
	return ValidateLength(fieldName, strings.TrimSpace(value), 0, max)
}

// ValidateOptional проверяет длину, если значение задано.
func ValidateOptional(fieldName string, value *string, max int) error {
	if value == nil {
		return nil
	}
	return ValidateLength(fieldName, strings.TrimSpace(*value), 0, max)
}

// ValidateScore проверяет оценку провайдера.
func ValidateScore(score, min, max int) error {
	if score < min || score > max {
		return fmt.Errorf("оценка должна быть от %d до %d", min, max)
	}
	return nil
}

var clockLayouts = []string{"15:04:05", "15:04"}

// NormalizeClock приводит "9:30", "09:30" или "09:30:00" к виду HH:MM:SS.
func NormalizeClock(fieldName, value string) (string, error) {
	value = strings.TrimSpace(value)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("15:04:05"), nil
		}
	}
	return "", fmt.Errorf("%s должно быть в формате HH:MM или HH:MM:SS", fieldName)
}

// ValidateTimeRange нормализует интервал и проверяет, что начало раньше конца.
func ValidateTimeRange(start, end string) (string, string, error) {
	normStart, err := NormalizeClock("время начала", start)
	if err != nil {
		return "", "", err
	}
	normEnd, err := NormalizeClock("время окончания", end)
	if err != nil {
		return "", "", err
	}
	// HH:MM:SS сравнивается лексикографически.
	if normStart >= normEnd {
		return "", "", fmt.Errorf("время начала должно быть раньше времени окончания")
	}
	return normStart, normEnd, nil
}
