package id

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator { return UUIDGenerator{} }

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// OrderNumberGenerator produces human-readable numbers like ORD-M1ABCDEF-9F3A02C4:
// a base36 millisecond prefix followed by 32 random bits.
type OrderNumberGenerator struct {
	now func() time.Time
}

func NewOrderNumberGenerator() OrderNumberGenerator {
	return OrderNumberGenerator{now: time.Now}
}

func (g OrderNumberGenerator) NewOrderNumber() string {
	now := time.Now
	if g.now != nil {
		now = g.now
	}
	prefix := strings.ToUpper(strconv.FormatInt(now().UnixMilli(), 36))

	var suffix [4]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		// crypto/rand does not fail on supported platforms; fall back to uuid entropy.
		u := uuid.New()
		copy(suffix[:], u[:4])
	}
	return "ORD-" + prefix + "-" + strings.ToUpper(hex.EncodeToString(suffix[:]))
}
