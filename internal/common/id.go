package common

import (
	"github.com/google/uuid"
)

// NewSessionID generates a unique session identifier
// Format: ses_<uuid>
func NewSessionID() string {
	return "ses_" + uuid.New().String()
}

// NewInstanceID generates an identifier for a running server instance
func NewInstanceID() string {
	return uuid.New().String()
}
