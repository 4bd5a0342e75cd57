package main

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"arena-server/config"
	"arena-server/store"
)

func newTestAuth(t *testing.T, db *store.DB) *Auth {
	t.Helper()
	a, err := NewAuth(db, nil, config.AdminConfig{Password: "secret", TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewAuth: %v", err)
	}
	return a
}

func TestAdminLogin(t *testing.T) {
	a := newTestAuth(t, nil)

	if _, err := a.AdminLogin("al", "nope", "1.2.3.4"); !errors.Is(err, ErrBadPassword) {
		t.Errorf("wrong password: err = %v", err)
	}
	tok, err := a.AdminLogin("al", "secret", "1.2.3.4")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := a.ValidateAdminToken(tok); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestAdminLoginRateLimited(t *testing.T) {
	a := newTestAuth(t, nil)
	a.adminHash = []byte("not a bcrypt hash") // keep the loop fast
	for i := 0; i < maxLoginAttempts; i++ {
		a.AdminLogin("al", "x", "5.5.5.5")
	}
	if _, err := a.AdminLogin("al", "x", "5.5.5.5"); !errors.Is(err, ErrTooManyAttempts) {
		t.Errorf("err = %v, want ErrTooManyAttempts", err)
	}
	if _, err := a.AdminLogin("al", "x", "6.6.6.6"); errors.Is(err, ErrTooManyAttempts) {
		t.Errorf("other addresses should not be limited")
	}
}

func TestAdminLoginDisabled(t *testing.T) {
	a, err := NewAuth(nil, nil, config.AdminConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.AdminLogin("al", "", "1.1.1.1"); !errors.Is(err, ErrAdminDisabled) {
		t.Errorf("err = %v, want ErrAdminDisabled", err)
	}
}

func TestValidateAdminTokenRejects(t *testing.T) {
	a := newTestAuth(t, nil)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"adm": true, "exp": time.Now().Add(-time.Minute).Unix(),
	})
	notAdmin := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"adm": false, "exp": time.Now().Add(time.Hour).Unix(),
	})
	for name, tok := range map[string]*jwt.Token{"expired": expired, "not admin": notAdmin} {
		s, err := tok.SignedString(a.jwtSecret)
		if err != nil {
			t.Fatal(err)
		}
		if err := a.ValidateAdminToken(s); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: err = %v", name, err)
		}
	}

	forged, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"adm": true, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("some other secret"))
	if err := a.ValidateAdminToken(forged); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("forged: err = %v", err)
	}
	if err := a.ValidateAdminToken("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage: err = %v", err)
	}
}

func TestSecretPersistedAcrossRestarts(t *testing.T) {
	db, err := store.OpenDB(filepath.Join(t.TempDir(), "a.sqlite3"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	first := newTestAuth(t, db)
	tok, err := first.AdminLogin("al", "secret", "1.1.1.1")
	if err != nil {
		t.Fatal(err)
	}
	second := newTestAuth(t, db)
	if err := second.ValidateAdminToken(tok); err != nil {
		t.Errorf("token from before restart rejected: %v", err)
	}
}

func TestFailedLoginRecorded(t *testing.T) {
	db, err := store.OpenDB(filepath.Join(t.TempDir(), "a.sqlite3"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	events := store.NewEvents(db)
	a, err := NewAuth(db, events, config.AdminConfig{Password: "secret", TokenTTL: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	a.AdminLogin("mallory", "guess", "9.9.9.9")
	events.Stop()

	n, err := db.CountFailedLogins(time.Now().Add(-time.Hour))
	if err != nil || n != 1 {
		t.Errorf("failed logins = %d, %v", n, err)
	}
}
