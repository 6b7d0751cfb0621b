package privops

import "testing"

func TestValidatePasswordStrength(t *testing.T) {
	valid := []string{
		"Correct-Horse-42",
		"Abcdefgh1234",
		"zooKEEPER2026!",
	}
	for _, pw := range valid {
		if err := ValidatePasswordStrength(pw); err != nil {
			t.Errorf("ValidatePasswordStrength(%q): unexpected error %v", pw, err)
		}
	}

	invalid := []string{
		"",
		"Short1a",              // too short
		"alllowercase1234",     // no uppercase
		"ALLUPPERCASE1234",     // no lowercase
		"NoDigitsAtAllHere",    // no number
	}
	for _, pw := range invalid {
		if err := ValidatePasswordStrength(pw); err == nil {
			t.Errorf("ValidatePasswordStrength(%q): expected error", pw)
		}
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Correct-Horse-42")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "Correct-Horse-42" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !VerifyPassword(hash, "Correct-Horse-42") {
		t.Fatal("expected verification to succeed")
	}
	if VerifyPassword(hash, "correct-horse-42") {
		t.Fatal("expected verification to fail for wrong case")
	}
	if VerifyPassword("not-a-bcrypt-hash", "Correct-Horse-42") {
		t.Fatal("expected verification to fail for garbage hash")
	}
}
