package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// MaxMediaRefLength предельная длина ссылки на файл.
const MaxMediaRefLength = 500

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

// ValidateMediaRef проверяет ссылку на файл: путь внутри хранилища (/media/...) или внешний http(s) URL.
func ValidateMediaRef(fieldName, ref string) error {
	ref = strings.TrimSpace(ref)
	if err := ValidateNonEmpty(fieldName, ref); err != nil {
		return err
	}
	if err := ValidateLength(fieldName, ref, 0, MaxMediaRefLength); err != nil {
		return err
	}

	if strings.HasPrefix(ref, "/") {
		// "//host/..." браузер трактует как внешний адрес
		if strings.HasPrefix(ref, "//") || strings.Contains(ref, "..") {
			return fmt.Errorf("%s содержит недопустимый путь", fieldName)
		}
		return nil
	}

	parsedURL, err := url.Parse(ref)
	if err != nil {
		return fmt.Errorf("%s: некорректный формат URL", fieldName)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s должна начинаться с http:// или https://", fieldName)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s должна содержать доменное имя", fieldName)
	}
	return nil
}
