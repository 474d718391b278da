package drone

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so scan logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
// IDs name both bundle directories and uploaded artifacts.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// DirName turns an id into a directory-friendly name (UUID dashes stripped).
func DirName(id string) string { return strings.ReplaceAll(id, "-", "") }
