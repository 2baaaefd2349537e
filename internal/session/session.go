// Package session provides cookie-identified admin sessions. Session data
// lives in Valkey when it is configured and in process memory otherwise.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "atelier_session"

	// DefaultTTL is how long a session lives before automatic expiry.
	DefaultTTL = 24 * time.Hour

	keyPrefix = "atelier:session:"

	// idLength is the byte length of the random session ID (32 bytes = 64 hex chars).
	idLength = 32
)

// Data is the session payload.
type Data struct {
	Username  string    `json:"username"`
	TwoFADone bool      `json:"two_fa_done"`
	CreatedAt time.Time `json:"created_at"`
}

// backend stores opaque session payloads with a TTL. A missing key returns
// (nil, nil).
type backend interface {
	get(ctx context.Context, key string) ([]byte, error)
	set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	del(ctx context.Context, key string) error
}

// Store manages the session lifecycle and cookie.
type Store struct {
	backend backend
	ttl     time.Duration
	secure  bool
}

// NewStore creates a session store in Valkey. secure marks the cookie
// HTTPS-only.
func NewStore(client *redis.Client, secure bool) *Store {
	return &Store{backend: valkeyBackend{client: client}, ttl: DefaultTTL, secure: secure}
}

// NewMemoryStore creates a session store that keeps sessions in process
// memory. Sessions are lost on restart.
func NewMemoryStore(secure bool) *Store {
	return &Store{backend: &memoryBackend{items: map[string]memoryItem{}}, ttl: DefaultTTL, secure: secure}
}

// Create stores a new session and sets the session cookie. Returns the
// session ID.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	data.CreatedAt = time.Now()

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("session marshal: %w", err)
	}

	if err := s.backend.set(ctx, keyPrefix+id, payload, s.ttl); err != nil {
		return "", fmt.Errorf("session store: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})

	return id, nil
}

// Get returns the session for the request cookie, or nil when there is no
// valid session.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil
	}

	payload, err := s.backend.get(ctx, keyPrefix+cookie.Value)
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	if payload == nil {
		return nil, nil
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}

	return &data, nil
}

// Update replaces the session data without changing the session ID or
// cookie. Resets the TTL.
func (s *Store) Update(ctx context.Context, r *http.Request, data *Data) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return fmt.Errorf("session update: no cookie")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}

	if err := s.backend.set(ctx, keyPrefix+cookie.Value, payload, s.ttl); err != nil {
		return fmt.Errorf("session update: %w", err)
	}

	return nil
}

// Destroy removes the session and clears the cookie.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}

	if err := s.backend.del(ctx, keyPrefix+cookie.Value); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		MaxAge:   -1,
	})

	return nil
}

// generateID creates a cryptographically random session identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

type valkeyBackend struct {
	client *redis.Client
}

func (b valkeyBackend) get(ctx context.Context, key string) ([]byte, error) {
	val, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

func (b valkeyBackend) set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return b.client.Set(ctx, key, val, ttl).Err()
}

func (b valkeyBackend) del(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}

type memoryItem struct {
	val     []byte
	expires time.Time
}

type memoryBackend struct {
	mu    sync.Mutex
	items map[string]memoryItem
}

func (b *memoryBackend) get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	item, ok := b.items[key]
	if !ok {
		return nil, nil
	}
	if time.Now().After(item.expires) {
		delete(b.items, key)
		return nil, nil
	}
	return item.val, nil
}

func (b *memoryBackend) set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	for k, item := range b.items {
		if now.After(item.expires) {
			delete(b.items, k)
		}
	}
	b.items[key] = memoryItem{val: val, expires: now.Add(ttl)}
	return nil
}

func (b *memoryBackend) del(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.items, key)
	return nil
}
