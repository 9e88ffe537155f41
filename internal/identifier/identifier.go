// Package identifier generates and validates the prefixed ULID
// identifiers used for every entity in the system. An identifier is
// "{prefix}_{26-char ULID}", e.g. "prd_01J8ZQ2M5T3V8XW4YB6KD9NCRF".
package identifier

import (
	"crypto/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefix is the short entity tag carried in front of every identifier.
type Prefix string

const (
	PrefixUser           Prefix = "usr"
	PrefixProduct        Prefix = "prd"
	PrefixCategory       Prefix = "cat"
	PrefixCart           Prefix = "crt"
	PrefixCartItem       Prefix = "cit"
	PrefixUserSession    Prefix = "ses"
	PrefixIdempotencyKey Prefix = "idk"
)

var knownPrefixes = map[Prefix]bool{
	PrefixUser:           true,
	PrefixProduct:        true,
	PrefixCategory:       true,
	PrefixCart:           true,
	PrefixCartItem:       true,
	PrefixUserSession:    true,
	PrefixIdempotencyKey: true,
}

// ulidPattern matches the Crockford base32 alphabet (no I, L, O, U).
var ulidPattern = regexp.MustCompile(`^[0123456789ABCDEFGHJKMNPQRSTVWXYZ]{26}$`)

// Components holds the parts of a parsed identifier.
type Components struct {
	Prefix string
	ULID   string
	FullID string
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a bare 26-character ULID. Successive calls within the
// same millisecond are monotonically increasing. An entropy source
// failure panics, which is treated as fatal.
func NewULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Generate produces a new identifier for the given prefix.
func Generate(prefix Prefix) string {
	return string(prefix) + "_" + NewULID()
}

// Parse splits an identifier on the first underscore. It returns nil if
// there is no underscore, either side is empty, or the ULID part is not
// 26 characters drawn from the Crockford alphabet. Prefix membership is
// not checked here; that is IsValid's job. Parse never fails with an
// error; invalid input simply yields nil.
func Parse(id string) *Components {
	if id == "" {
		return nil
	}
	prefix, rest, found := strings.Cut(id, "_")
	if !found || prefix == "" || !ulidPattern.MatchString(rest) {
		return nil
	}
	return &Components{
		Prefix: prefix,
		ULID:   rest,
		FullID: id,
	}
}

// IsValid reports whether id parses and carries a known prefix. The
// alphabet and length of the ULID part are already enforced by Parse.
func IsValid(id string) bool {
	parsed := Parse(id)
	return parsed != nil && knownPrefixes[Prefix(parsed.Prefix)]
}

// ValidatePrefix reports whether id parses and carries exactly the
// expected prefix.
func ValidatePrefix(id string, expected Prefix) bool {
	parsed := Parse(id)
	return parsed != nil && parsed.Prefix == string(expected)
}

// ExtractULID returns the 26-character ULID part, or "" if id does not
// parse.
func ExtractULID(id string) string {
	parsed := Parse(id)
	if parsed == nil {
		return ""
	}
	return parsed.ULID
}

// ExtractPrefix returns the prefix part, or "" if id does not parse.
func ExtractPrefix(id string) string {
	parsed := Parse(id)
	if parsed == nil {
		return ""
	}
	return parsed.Prefix
}

// ExtractTimestamp decodes the leading time component of the ULID part
// as milliseconds since the Unix epoch. The second return is false when
// the identifier does not parse or the ULID part fails strict decoding.
func ExtractTimestamp(id string) (int64, bool) {
	parsed := Parse(id)
	if parsed == nil {
		return 0, false
	}
	u, err := ulid.ParseStrict(parsed.ULID)
	if err != nil {
		return 0, false
	}
	return int64(u.Time()), true
}
