package validators

import "strings"

func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len([]rune(trimmed)) > maxLen {
		return string([]rune(trimmed)[:maxLen])
	}
	return trimmed
}

// OptionalString trims input and maps blank values to nil.
func OptionalString(input *string, maxLen int) *string {
	if input == nil {
		return nil
	}
	value := SanitizeString(*input, maxLen)
	if value == "" {
		return nil
	}
	return &value
}
