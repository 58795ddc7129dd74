package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SAP-F-2025/auth-service/internal/models"
	"github.com/SAP-F-2025/auth-service/internal/repositories"
)

// UserMemory is an in-process credential store. Email uniqueness is enforced
// under the write lock, so concurrent creates for one email yield one winner.
type UserMemory struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
}

func NewUserMemory() *UserMemory {
	return &UserMemory{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserMemory) GetByID(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return user.Clone(), nil
}

func (r *UserMemory) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *UserMemory) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}

	user.Email = models.NormalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return repositories.ErrDuplicate
	}
	if _, exists := r.byID[user.ID]; exists {
		return repositories.ErrDuplicate
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	r.byID[user.ID] = user.Clone()
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *UserMemory) Update(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[user.ID]
	if !ok {
		return repositories.ErrNotFound
	}

	user.UpdatedAt = time.Now().UTC()

	updated := user.Clone()
	updated.Email = stored.Email
	updated.PasswordHash = stored.PasswordHash
	updated.CreatedAt = stored.CreatedAt
	r.byID[user.ID] = updated
	return nil
}

func (r *UserMemory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	delete(r.byEmail, user.Email)
	delete(r.byID, id)
	return nil
}

func (r *UserMemory) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, unavailable(err)
	}

	r.mu.RLock()
	matched := make([]*models.User, 0, len(r.byID))
	for _, user := range r.byID {
		if filters.Role != nil && user.Role != *filters.Role {
			continue
		}
		if filters.Status != nil && user.Status != *filters.Status {
			continue
		}
		matched = append(matched, user.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	limit, offset := bounds(filters.Limit, filters.Offset)
	if offset >= len(matched) {
		return []*models.User{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *UserMemory) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byEmail[models.NormalizeEmail(email)]
	return ok, nil
}

func (r *UserMemory) CountByRole(ctx context.Context) (map[models.UserRole]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[models.UserRole]int64)
	for _, user := range r.byID {
		counts[user.Role]++
	}
	return counts, nil
}

func (r *UserMemory) CountByStatus(ctx context.Context) (map[models.UserStatus]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[models.UserStatus]int64)
	for _, user := range r.byID {
		counts[user.Status]++
	}
	return counts, nil
}

func (r *UserMemory) CountActiveByRole(ctx context.Context, role models.UserRole) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, user := range r.byID {
		if user.Role == role && user.Status == models.StatusActive {
			n++
		}
	}
	return n, nil
}

func bounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
