package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"arena-server/config"
	"arena-server/store"
)

const (
	bcryptCost       = 12
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
)

var (
	ErrAdminDisabled   = errors.New("admin login is disabled")
	ErrBadPassword     = errors.New("password incorrect")
	ErrTooManyAttempts = errors.New("too many login attempts, try again later")
	ErrInvalidToken    = errors.New("invalid token")
)

// Auth verifies the admin password and issues admin tokens
type Auth struct {
	events    *store.Events
	jwtSecret []byte
	adminHash []byte
	tokenTTL  time.Duration
	now       func() time.Time

	// Rate limiting for login attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth hashes the configured admin password and loads the token secret.
// An empty password disables admin login.
func NewAuth(db *store.DB, events *store.Events, cfg config.AdminConfig) (*Auth, error) {
	a := &Auth{
		events:    events,
		jwtSecret: loadOrCreateSecret(db),
		tokenTTL:  cfg.TokenTTL,
		now:       time.Now,
		rateMap:   make(map[string]*rateEntry),
	}
	if cfg.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		a.adminHash = hash
	}
	return a, nil
}

// loadOrCreateSecret loads the JWT secret from the database, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(db *store.DB) []byte {
	if db != nil {
		if h := db.GetSetting("jwt_secret"); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
			log.Printf("warning: could not persist JWT secret: %v", err)
		}
	}
	return secret
}

// AdminLogin checks the password and returns an admin token. Failures are
// recorded with the player name and address.
func (a *Auth) AdminLogin(name, password, ip string) (string, error) {
	if a.adminHash == nil {
		return "", ErrAdminDisabled
	}
	if !a.checkRate(ip) {
		return "", ErrTooManyAttempts
	}
	if err := bcrypt.CompareHashAndPassword(a.adminHash, []byte(password)); err != nil {
		log.Printf("failed admin login from %s (%q)", ip, name)
		a.events.FailedLogin(name, ip)
		return "", ErrBadPassword
	}
	return a.generateToken()
}

// ValidateAdminToken reports whether tokenStr is an unexpired admin token
// signed by this server.
func (a *Auth) ValidateAdminToken(tokenStr string) error {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return ErrInvalidToken
	}
	if adm, _ := claims["adm"].(bool); !adm {
		return ErrInvalidToken
	}
	return nil
}

func (a *Auth) generateToken() (string, error) {
	now := a.now()
	claims := jwt.MapClaims{
		"adm": true,
		"exp": now.Add(a.tokenTTL).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := a.now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxLoginAttempts
}
