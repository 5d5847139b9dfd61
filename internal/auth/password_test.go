package auth

import "testing"

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse 1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse 1" {
		t.Fatal("hash equals plaintext")
	}
	if !VerifyPassword(hash, "correct horse 1") {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword(hash, "wrong horse 1") {
		t.Fatal("wrong password accepted")
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	a := HashToken("tok")
	b := HashToken("tok")
	if a != b {
		t.Fatalf("same input hashed differently: %s != %s", a, b)
	}
	if a == HashToken("tok2") {
		t.Fatal("different inputs collided")
	}
	if len(a) != 64 {
		t.Fatalf("unexpected hash length %d", len(a))
	}
}

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(32)
	if err != nil {
		t.Fatalf("RandomToken: %v", err)
	}
	b, err := RandomToken(32)
	if err != nil {
		t.Fatalf("RandomToken: %v", err)
	}
	if len(a) != 64 {
		t.Fatalf("unexpected token length %d", len(a))
	}
	if a == b {
		t.Fatal("two random tokens collided")
	}
}

func TestPasswordViolationsCollectsAll(t *testing.T) {
	fields := passwordViolations("short")
	want := map[string]bool{"password.min_length": true, "password.digit": true}
	if len(fields) != len(want) {
		t.Fatalf("unexpected fields %v", fields)
	}
	for _, f := range fields {
		if !want[f] {
			t.Fatalf("unexpected field %q", f)
		}
	}
	if fields := passwordViolations("longenough1"); len(fields) != 0 {
		t.Fatalf("valid password flagged: %v", fields)
	}
}
