package memory

import (
	"context"
	"sync"
	"time"
)

type refreshEntry struct {
	userID    string
	expiresAt time.Time
}

// RefreshTokenMemory tracks refresh tokens for a single process.
type RefreshTokenMemory struct {
	mu     sync.Mutex
	tokens map[string]refreshEntry
	now    func() time.Time
}

func NewRefreshTokenMemory() *RefreshTokenMemory {
	return &RefreshTokenMemory{
		tokens: make(map[string]refreshEntry),
		now:    time.Now,
	}
}

func (r *RefreshTokenMemory) Save(ctx context.Context, jti, userID string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeExpired()
	r.tokens[jti] = refreshEntry{userID: userID, expiresAt: r.now().Add(ttl)}
	return nil
}

func (r *RefreshTokenMemory) Consume(ctx context.Context, jti, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.tokens[jti]
	if !ok {
		return false, nil
	}
	delete(r.tokens, jti)

	if r.now().After(entry.expiresAt) {
		return false, nil
	}
	return entry.userID == userID, nil
}

func (r *RefreshTokenMemory) Revoke(ctx context.Context, jti string) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, jti)
	return nil
}

func (r *RefreshTokenMemory) RevokeAllForUser(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for jti, entry := range r.tokens {
		if entry.userID == userID {
			delete(r.tokens, jti)
		}
	}
	return nil
}

// purgeExpired must be called with mu held.
func (r *RefreshTokenMemory) purgeExpired() {
	now := r.now()
	for jti, entry := range r.tokens {
		if now.After(entry.expiresAt) {
			delete(r.tokens, jti)
		}
	}
}
