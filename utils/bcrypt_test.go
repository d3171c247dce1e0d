package utils

import "testing"

func TestComparePasswordRoundTrip(t *testing.T) {
	hashed, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hashed, "hunter2"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := ComparePassword(hashed, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

// A stored hash that is not bcrypt at all must still fail the compare with a
// non-nil error; login treats every compare failure as a denial, not just a
// plain mismatch.
func TestComparePasswordRejectsCorruptHash(t *testing.T) {
	if err := ComparePassword("not-a-bcrypt-hash", "hunter2"); err == nil {
		t.Fatal("expected error for corrupt stored hash")
	}
}
