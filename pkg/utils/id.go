package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewRequestID returns "<unix millis>-<9 random hex chars>".
func NewRequestID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix
}
