package biz

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxCityNameLength = 50
	MaxArgLength      = 100
)

var (
	cityPattern       = regexp.MustCompile(`^[a-zA-ZÀ-ÿĀ-žА-я\s\-'.]+$`)
	suspiciousPattern = regexp.MustCompile(`[<>{}\[\]|\\]`)
	controlChars      = regexp.MustCompile(`[\x00-\x1f\x7f-\x{9f}]`)
	whitespaceRun     = regexp.MustCompile(`\s+`)
)

// SanitizeInput strips control characters and collapses whitespace.
func SanitizeInput(text string) string {
	if text == "" {
		return ""
	}
	sanitized := controlChars.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(sanitized, " "))
}

// ValidateCity returns a user-facing message when city is not an acceptable
// city name, or "" when it is.
func ValidateCity(city string) string {
	city = strings.TrimSpace(city)
	if city == "" {
		return "City name cannot be empty"
	}
	if utf8.RuneCountInString(city) > MaxCityNameLength {
		return fmt.Sprintf("City name exceeds %d character limit", MaxCityNameLength)
	}
	if !cityPattern.MatchString(city) {
		return "City name contains invalid characters"
	}
	if suspiciousPattern.MatchString(city) {
		return "Invalid characters detected"
	}
	return ""
}

// ValidateCoordinates returns a user-facing message for out-of-range values.
func ValidateCoordinates(lat, lon float64) string {
	if lat < -90 || lat > 90 {
		return "Latitude must be between -90 and 90"
	}
	if lon < -180 || lon > 180 {
		return "Longitude must be between -180 and 180"
	}
	return ""
}

// ValidateArgs bounds the number and length of command arguments.
func ValidateArgs(args []string, minArgs, maxArgs int) string {
	if len(args) < minArgs {
		return fmt.Sprintf("Insufficient arguments - minimum %d required", minArgs)
	}
	if len(args) > maxArgs {
		return fmt.Sprintf("Too many arguments - maximum %d allowed", maxArgs)
	}
	for _, arg := range args {
		if utf8.RuneCountInString(arg) > MaxArgLength {
			return "Argument length exceeds limit"
		}
	}
	return ""
}
