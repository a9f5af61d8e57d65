package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

func MessageContent(content string) error {
	const maxLength = 2000

	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("empty_content")
	}
	if utf8.RuneCountInString(content) > maxLength {
		return fmt.Errorf("long_content")
	}
	return nil
}

func EntityName(name string) error {
	const maxLength = 64

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("empty_name")
	}
	if utf8.RuneCountInString(trimmed) > maxLength {
		return fmt.Errorf("long_name")
	}
	return nil
}
