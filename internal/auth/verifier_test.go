package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"
)

func signHS256(secret, payload string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString([]byte(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(header + "." + body))
	return header + "." + body + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyDevMode(t *testing.T) {
	v := &Verifier{Mode: "dev"}
	p, err := v.Verify("dispatcher")
	if err != nil || p.Role != "dispatcher" {
		t.Fatalf("got %+v, %v", p, err)
	}
}

func TestVerifyHS256(t *testing.T) {
	v := &Verifier{Mode: "hmac", HMACSecret: []byte("sekrit"), RoleClaim: "role"}
	tok := signHS256("sekrit", `{"sub":"u1","role":"admin"}`)

	p, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Role != "admin" || p.Subject != "u1" {
		t.Fatalf("principal = %+v", p)
	}
}

func TestVerifyHS256BadSignature(t *testing.T) {
	v := &Verifier{Mode: "hmac", HMACSecret: []byte("sekrit"), RoleClaim: "role"}
	tok := signHS256("wrong-secret", `{"role":"admin"}`)
	if _, err := v.Verify(tok); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("got %v, want ErrBadSignature", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	v := &Verifier{Mode: "hmac", HMACSecret: []byte("s")}
	if _, err := v.Verify("not-a-jwt"); !errors.Is(err, ErrBadToken) {
		t.Fatalf("got %v, want ErrBadToken", err)
	}
}
