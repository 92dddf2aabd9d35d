package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateConfirmationToken returns an opaque, unguessable email confirmation token.
func GenerateConfirmationToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
}
