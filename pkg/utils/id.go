package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns "<prefix>_<uuid>", e.g. "auction_3f0c...".
func GenerateID(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "_" + uuid.NewString()
}
