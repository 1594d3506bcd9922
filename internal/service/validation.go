package service

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
	"github.com/aryan0dhankhar/serverhub/internal/tenancy"
)

const (
	maxNameLen        = 100
	maxDescriptionLen = 500
	maxAddressLen     = 255
	maxTitleLen       = 200
	maxSubtitleLen    = 300
	minPasswordLen    = 8
	maxPasswordLen    = 72 // bcrypt ignores bytes past 72
	maxEmailLen       = 254
)

var (
	subdomainPattern   = regexp.MustCompile(`^[a-z0-9-]{3,30}$`)
	sectionTypePattern = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)
)

// NormalizeEmail trims and lowercases email and checks it is a bare address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", domain.NewValidationError("email", "is required")
	}
	if len(email) > maxEmailLen {
		return "", domain.NewValidationError("email", "is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.NewValidationError("email", "must be a valid email address")
	}
	return email, nil
}

func validatePassword(password string) error {
	switch {
	case len(password) < minPasswordLen:
		return domain.NewValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	case len(password) > maxPasswordLen:
		return domain.NewValidationError("password", fmt.Sprintf("must be at most %d bytes", maxPasswordLen))
	}
	return nil
}

// ValidateSubdomain checks the format and the reserved list.
func ValidateSubdomain(sub string) error {
	if !subdomainPattern.MatchString(sub) {
		return domain.NewValidationError("subdomain", "must be 3-30 characters of a-z, 0-9 or -")
	}
	if tenancy.IsReserved(sub) {
		return domain.NewValidationError("subdomain", "is reserved")
	}
	return nil
}

func validateServer(s *domain.Server) error {
	if n := utf8.RuneCountInString(s.Name); n == 0 {
		return domain.NewValidationError("name", "is required")
	} else if n > maxNameLen {
		return domain.NewValidationError("name", fmt.Sprintf("must be at most %d characters", maxNameLen))
	}
	if err := ValidateSubdomain(s.Subdomain); err != nil {
		return err
	}
	if utf8.RuneCountInString(s.Description) > maxDescriptionLen {
		return domain.NewValidationError("description", fmt.Sprintf("must be at most %d characters", maxDescriptionLen))
	}
	if len(s.Address) > maxAddressLen {
		return domain.NewValidationError("address", fmt.Sprintf("must be at most %d characters", maxAddressLen))
	}
	if strings.ContainsAny(s.Address, " /\t") {
		return domain.NewValidationError("address", "must be a host name or IP address")
	}
	if s.Port < 0 || s.Port > 65535 {
		return domain.NewValidationError("port", "must be between 1 and 65535")
	}
	return nil
}

func validateSection(s *domain.Section) error {
	if !sectionTypePattern.MatchString(s.Type) {
		return domain.NewValidationError("type", "must be 1-32 characters of a-z, 0-9, _ or -")
	}
	if utf8.RuneCountInString(s.Title) > maxTitleLen {
		return domain.NewValidationError("title", fmt.Sprintf("must be at most %d characters", maxTitleLen))
	}
	if utf8.RuneCountInString(s.Subtitle) > maxSubtitleLen {
		return domain.NewValidationError("subtitle", fmt.Sprintf("must be at most %d characters", maxSubtitleLen))
	}
	if s.Order < 0 {
		return domain.NewValidationError("order", "must not be negative")
	}
	return nil
}

// validID rejects identifiers that cannot be a stored row id, so malformed
// path values read as "not found" instead of reaching the database.
func validID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s %q: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}
