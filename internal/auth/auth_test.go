package auth

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/YannKr/photoalbum/internal/model"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "hunter22") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "hunter23") {
		t.Error("wrong password accepted")
	}
}

func TestGenerateTokenEntropyAndUniqueness(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		tok, err := GenerateToken(32)
		if err != nil {
			t.Fatal(err)
		}
		raw, err := hex.DecodeString(tok)
		if err != nil {
			t.Fatalf("token %q is not hex: %v", tok, err)
		}
		if len(raw)*8 < 256 {
			t.Fatalf("token carries %d bits", len(raw)*8)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("collision after %d tokens", i)
		}
		seen[tok] = struct{}{}
	}
}

func TestSessionCookieSignature(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "abc123", "secret", false)
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	id, ok := GetSessionID(req, "secret")
	if !ok || id != "abc123" {
		t.Fatalf("GetSessionID = %q, %v", id, ok)
	}

	if _, ok := GetSessionID(req, "other-secret"); ok {
		t.Error("cookie accepted with the wrong secret")
	}

	forged := httptest.NewRequest(http.MethodGet, "/", nil)
	forged.AddCookie(&http.Cookie{Name: CookieName, Value: "abc124." + cookie.Value[len("abc123."):]})
	if _, ok := GetSessionID(forged, "secret"); ok {
		t.Error("forged session id accepted")
	}
}

func TestPrincipalContext(t *testing.T) {
	if UserFromContext(context.Background()) != "" {
		t.Error("anonymous context has a user")
	}
	ctx := ContextWithPrincipal(context.Background(), Principal{
		UserID: "u1", Permissions: model.NewPermissions(model.PermUpload),
	})
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.UserID != "u1" {
		t.Fatalf("principal = %+v, %v", p, ok)
	}
	if !p.Can(model.PermUpload) || p.Can(model.PermRead) {
		t.Error("unexpected permission result")
	}
}
