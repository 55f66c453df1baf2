package security

import (
	"testing"
	"time"

	errs "TripBoard/tools/errs"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	opts := DefaultOptions([]byte("unit-test-secret"))

	token, expireAt, err := Generate(opts, Identity{
		UserID:      "alice",
		DisplayName: "Alice",
		AvatarRef:   "avatars/alice.png",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if token == "" || !expireAt.After(time.Now()) {
		t.Fatalf("token=%q expireAt=%v", token, expireAt)
	}

	id, err := Verify(opts, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != "alice" || id.DisplayName != "Alice" || id.AvatarRef != "avatars/alice.png" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, _, err := Generate(DefaultOptions([]byte("secret-a")), Identity{UserID: "alice"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err = Verify(DefaultOptions([]byte("secret-b")), token)
	if err == nil || !errs.ErrUnauthenticated.Is(err) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	opts := DefaultOptions([]byte("unit-test-secret"))

	past := time.Now().Add(-time.Minute)
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": "alice",
		"iat": past.Add(-time.Hour).Unix(),
		"exp": past.Unix(),
	})
	token, err := tok.SignedString(opts.Secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err = Verify(opts, token); err == nil || !errs.ErrUnauthenticated.Is(err) {
		t.Fatalf("expected unauthenticated for expired token, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	opts := DefaultOptions([]byte("unit-test-secret"))
	if _, err := Verify(opts, "not-a-token"); err == nil {
		t.Fatal("garbage token must fail")
	}
}

func TestGenerateRejectsUnknownAlg(t *testing.T) {
	opts := DefaultOptions([]byte("unit-test-secret"))
	opts.Alg = "RS256"
	if _, _, err := Generate(opts, Identity{UserID: "alice"}); err == nil {
		t.Fatal("non-HMAC alg must be rejected")
	}
}

func TestHashTokenStable(t *testing.T) {
	a := HashToken("abc")
	b := HashToken("abc")
	if a != b || a == HashToken("abd") {
		t.Fatalf("hash unstable: %s vs %s", a, b)
	}
}
