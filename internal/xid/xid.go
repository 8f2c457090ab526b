package xid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// New returns a prefixed random identifier such as "med_3f2a...".
func New(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// Sequence formats a human-facing document number, e.g. Sequence("SAL", 7) == "SAL007".
func Sequence(prefix string, n int) string {
	return fmt.Sprintf("%s%03d", prefix, n)
}
