package database

import (
	"testing"
)

func TestJSONBValueAndScan(t *testing.T) {
	src := JSONB{"locale": "en-US", "quota": float64(100), "beta": true}
	val, err := src.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var dst JSONB
	if err := dst.Scan(val); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if dst["locale"] != "en-US" {
		t.Fatalf("unexpected locale: %v", dst["locale"])
	}

	m := dst.ToStringMap()
	if m["quota"] != "100" {
		t.Fatalf("unexpected quota: %q", m["quota"])
	}
	if m["beta"] != "true" {
		t.Fatalf("unexpected beta: %q", m["beta"])
	}
}

func TestJSONBScanNil(t *testing.T) {
	var j JSONB
	if err := j.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if j == nil {
		t.Fatalf("expected empty map")
	}
}

func TestStringListRoundTrip(t *testing.T) {
	src := StringList{"audit:read", "tenants:write"}
	val, err := src.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var dst StringList
	if err := dst.Scan(val); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !dst.Contains("audit:read") {
		t.Fatalf("expected audit:read present")
	}
	if dst.Contains("impersonate") {
		t.Fatalf("did not expect impersonate")
	}
}
