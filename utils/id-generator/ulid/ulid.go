package ulid

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

/* ========================================================================
 * ULID Generator
 * ========================================================================
 * 128-bit lexicographically sortable ids (Crockford Base32, 26 chars).
 * Used for externally visible identifiers where time ordering helps:
 * audit correlation suffixes and test fixtures. No node configuration
 * required, entropy is crypto/rand.
 * ======================================================================== */

var (
	globalEntropy io.Reader
	once          sync.Once
	mu            sync.Mutex
)

// Generator produces ULIDs from a dedicated entropy source.
type Generator struct {
	entropy io.Reader
	mu      sync.Mutex
}

// NewGenerator creates a generator; a nil entropy uses crypto/rand.
// Monotonic entropy keeps same-millisecond ids ordered; it is not
// concurrency safe on its own, hence the mutex.
func NewGenerator(entropy io.Reader) *Generator {
	if entropy == nil {
		entropy = rand.Reader
	}
	if _, ok := entropy.(ulid.MonotonicEntropy); !ok {
		entropy = ulid.Monotonic(entropy, 0)
	}
	return &Generator{entropy: entropy}
}

// Generate returns a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString returns a new ULID string.
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

func initEntropy() {
	globalEntropy = ulid.Monotonic(rand.Reader, 0)
}

// Generate returns a new ULID from the process-wide entropy source.
func Generate() ulid.ULID {
	once.Do(initEntropy)

	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), globalEntropy)
}

// GenerateString returns a new ULID string.
func GenerateString() string {
	return Generate().String()
}

// Parse parses a ULID string.
func Parse(s string) (ulid.ULID, error) {
	return ulid.Parse(s)
}

// MustParse parses a ULID string, panicking on failure.
func MustParse(s string) ulid.ULID {
	id, err := ulid.Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Time extracts the embedded timestamp.
func Time(id ulid.ULID) time.Time {
	return ulid.Time(id.Time())
}

// IsZero reports whether id is the zero ULID.
func IsZero(id ulid.ULID) bool {
	return id.Compare(ulid.ULID{}) == 0
}
