package utils

import "testing"

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash must not equal plaintext")
	}

	if !CheckPasswordHash("s3cret", hash) {
		t.Error("correct password should verify")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Error("wrong password should not verify")
	}
}

func TestRandStringLengthAndCharset(t *testing.T) {
	s := RandStringBytesMaskImpr(16)
	if len(s) != 16 {
		t.Fatalf("expected length 16, got %d", len(s))
	}
	if s == RandStringBytesMaskImpr(16) {
		t.Error("two random strings should differ")
	}
}
