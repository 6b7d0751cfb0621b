package ulid

import (
	"testing"
	"time"
)

func TestGenerateOrdering(t *testing.T) {
	a := Generate()
	time.Sleep(2 * time.Millisecond)
	b := Generate()
	if a.Compare(b) >= 0 {
		t.Fatalf("expected %s < %s", a, b)
	}
}

func TestParseRoundTrip(t *testing.T) {
	id := Generate()
	parsed, err := Parse(id.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Compare(id) != 0 {
		t.Fatalf("round trip mismatch")
	}
	if IsZero(parsed) {
		t.Fatalf("expected non-zero id")
	}
}

func TestGeneratorIndependentEntropy(t *testing.T) {
	gen := NewGenerator(nil)
	a := gen.Generate()
	b := gen.Generate()
	if a.Compare(b) == 0 {
		t.Fatalf("expected distinct ids")
	}
}
