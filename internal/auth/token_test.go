package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/perks/perks/internal/model"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager("secret", "perks", time.Hour)
	user := &model.User{ID: 42, UTORid: "alice123", Role: model.RoleCashier}

	token, expiresAt, err := tm.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if time.Until(expiresAt) <= 59*time.Minute {
		t.Errorf("expiresAt too early: %v", expiresAt)
	}

	claims, err := tm.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	id, err := claims.UserID()
	if err != nil || id != 42 {
		t.Errorf("UserID() = %d, %v; want 42", id, err)
	}
	if claims.UTORid != "alice123" || claims.Role != "cashier" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestTokenManager_Rejects(t *testing.T) {
	t.Parallel()

	user := &model.User{ID: 1, UTORid: "bob12345", Role: model.RoleRegular}
	tm := NewTokenManager("secret", "perks", time.Hour)

	expired := NewTokenManager("secret", "perks", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, _ := expired.Generate(user)

	otherSecret, _, _ := NewTokenManager("other", "perks", time.Hour).Generate(user)
	otherIssuer, _, _ := NewTokenManager("secret", "someone", time.Hour).Generate(user)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "perks",
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	noneToken, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"empty", ""},
		{"expired", expiredToken},
		{"wrong secret", otherSecret},
		{"wrong issuer", otherIssuer},
		{"alg none", noneToken},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := tm.Parse(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Parse(%s) error = %v, want ErrInvalidToken", tt.name, err)
			}
		})
	}
}

func TestTokenManager_RejectsBadSubject(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager("secret", "perks", time.Hour)
	token, _, err := tm.Generate(&model.User{ID: 0, UTORid: "x", Role: model.RoleRegular})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := tm.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for zero subject, got %v", err)
	}
}

func TestNewResetToken(t *testing.T) {
	t.Parallel()

	now := time.Now()
	a := NewResetToken(now)
	b := NewResetToken(now)

	if a == b {
		t.Error("reset tokens should be unique")
	}
	if a != strings.ToLower(a) {
		t.Errorf("reset token should be lowercase: %s", a)
	}
	if !IsResetTokenFormat(a) {
		t.Errorf("IsResetTokenFormat(%q) = false", a)
	}
	if IsResetTokenFormat("short") || IsResetTokenFormat(strings.Repeat("!", 26)) {
		t.Error("malformed tokens should be rejected")
	}
}

func TestAuthContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if AuthFromContext(ctx) != nil {
		t.Error("empty context should carry no auth")
	}

	ctx = ContextWithAuth(ctx, &model.AuthContext{UserID: 7, UTORid: "carol123"})
	got := AuthFromContext(ctx)
	if got == nil || got.UserID != 7 || got.UTORid != "carol123" {
		t.Errorf("auth context not propagated: %+v", got)
	}
}
