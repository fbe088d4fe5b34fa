package utils

import "github.com/gofrs/uuid"

// IsValidUUID reports whether s parses as a non-nil UUID.
func IsValidUUID(s string) bool {
	parsed, err := uuid.FromString(s)
	return err == nil && parsed != uuid.Nil
}
