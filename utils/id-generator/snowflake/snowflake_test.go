package snowflake

import "testing"

func TestNewGeneratorBounds(t *testing.T) {
	if _, err := NewGenerator(-1); err == nil {
		t.Fatalf("expected error for negative node id")
	}
	if _, err := NewGenerator(MaxNodeID + 1); err == nil {
		t.Fatalf("expected error for node id above max")
	}
	gen, err := NewGenerator(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.Generate() == gen.Generate() {
		t.Fatalf("expected distinct ids")
	}
}

func TestGenerateIsIncreasing(t *testing.T) {
	a := Generate()
	b := Generate()
	if b <= a {
		t.Fatalf("expected increasing ids: %d then %d", a, b)
	}

	ts, node := Parse(a)
	if ts == 0 {
		t.Fatalf("expected parsed timestamp")
	}
	if node < 0 || node > MaxNodeID {
		t.Fatalf("unexpected node id: %d", node)
	}
}
