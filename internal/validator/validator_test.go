package validator_test

import (
	"fmt"
	"strings"
	"testing"

	"harmony-backend/internal/validator"
)

func TestMessageContent(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		expectedError error
	}{
		{
			name:          "Valid: Plain message",
			content:       "hello",
			expectedError: nil,
		},
		{
			name:          "Valid: Maximum length (2000 runes)",
			content:       strings.Repeat("a", 2000),
			expectedError: nil,
		},
		{
			name:          "Valid: Multibyte runes counted as one",
			content:       strings.Repeat("é", 2000),
			expectedError: nil,
		},
		{
			name:          "Error: Empty",
			content:       "",
			expectedError: fmt.Errorf("empty_content"),
		},
		{
			name:          "Error: Whitespace only",
			content:       "   \n\t",
			expectedError: fmt.Errorf("empty_content"),
		},
		{
			name:          "Error: Too long (2001 runes)",
			content:       strings.Repeat("a", 2001),
			expectedError: fmt.Errorf("long_content"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.MessageContent(tt.content)
			if fmt.Sprint(err) != fmt.Sprint(tt.expectedError) {
				t.Errorf("Expected [%v], got [%v]", tt.expectedError, err)
			}
		})
	}
}

func TestEntityName(t *testing.T) {
	tests := []struct {
		name          string
		entityName    string
		expectedError error
	}{
		{
			name:          "Valid: Plain name",
			entityName:    "general",
			expectedError: nil,
		},
		{
			name:          "Valid: Maximum length (64 runes)",
			entityName:    strings.Repeat("a", 64),
			expectedError: nil,
		},
		{
			name:          "Error: Empty",
			entityName:    "",
			expectedError: fmt.Errorf("empty_name"),
		},
		{
			name:          "Error: Whitespace only",
			entityName:    "  ",
			expectedError: fmt.Errorf("empty_name"),
		},
		{
			name:          "Error: Too long (65 runes)",
			entityName:    strings.Repeat("a", 65),
			expectedError: fmt.Errorf("long_name"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.EntityName(tt.entityName)
			if fmt.Sprint(err) != fmt.Sprint(tt.expectedError) {
				t.Errorf("Expected [%v], got [%v]", tt.expectedError, err)
			}
		})
	}
}
