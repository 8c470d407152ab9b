package validation

import (
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	email = strings.TrimSpace(strings.ToLower(email))
	return emailRegex.MatchString(email)
}

// ValidatePassword validates password strength
func ValidatePassword(password string) bool {
	if len(password) < 8 {
		return false
	}

	var (
		hasUpper   bool
		hasLower   bool
		hasNumber  bool
		hasSpecial bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		case strings.ContainsRune("@$!%*?&", char):
			hasSpecial = true
		}
	}

	return hasUpper && hasLower && hasNumber && hasSpecial
}

// SanitizeString removes potentially harmful characters
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}

// FileExtension returns the lower-case extension without the dot, or "" when
// the name has none.
func FileExtension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// DetectMIME sniffs the content type from magic bytes.
func DetectMIME(data []byte) string {
	mt := mimetype.Detect(data).String()
	if base, _, err := mime.ParseMediaType(mt); err == nil {
		return base
	}
	return mt
}

// ResolveContentType trusts a specific declared type and sniffs otherwise.
func ResolveContentType(declared string, data []byte) string {
	if base, _, err := mime.ParseMediaType(declared); err == nil && base != "application/octet-stream" {
		return base
	}
	return DetectMIME(data)
}

func IsImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

func IsVideo(contentType string) bool {
	return strings.HasPrefix(contentType, "video/")
}
