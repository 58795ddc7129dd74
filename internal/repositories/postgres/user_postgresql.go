package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/auth-service/internal/cache"
	"github.com/SAP-F-2025/auth-service/internal/models"
	"github.com/SAP-F-2025/auth-service/internal/repositories"
)

// UserPostgreSQL is the gorm-backed credential store. GetByID is served
// through the redis cache; cached entries never contain the password hash,
// so credential checks always go through GetByEmail.
type UserPostgreSQL struct {
	db       *gorm.DB
	cache    *cache.CacheManager
	cacheTTL time.Duration
}

func NewUserPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager, cacheTTL time.Duration) *UserPostgreSQL {
	if cacheTTL <= 0 {
		cacheTTL = cache.UserCacheConfig.TTL
	}
	return &UserPostgreSQL{
		db:       db,
		cache:    cacheManager,
		cacheTTL: cacheTTL,
	}
}

func userCacheKey(id string) string {
	return "id:" + id
}

func (r *UserPostgreSQL) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.cache.User.Get(ctx, userCacheKey(id), &user); err == nil {
		return &user, nil
	}

	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translateError(err)
	}

	// a failed cache write only costs a miss next time
	_ = r.cache.User.Set(ctx, userCacheKey(id), &user, r.cacheTTL)

	return &user, nil
}

func (r *UserPostgreSQL) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", models.NormalizeEmail(email)).
		First(&user).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *UserPostgreSQL) Create(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return translateError(err)
	}
	cache.InvalidateStatsCache(ctx, r.cache)
	return nil
}

func (r *UserPostgreSQL) Update(ctx context.Context, user *models.User) error {
	result := r.db.WithContext(ctx).
		Model(user).
		Select("role", "status", "profile", "last_login_at", "updated_at").
		Updates(user)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	cache.InvalidateUserCache(ctx, r.cache, user.ID)
	return nil
}

func (r *UserPostgreSQL) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	cache.InvalidateUserCache(ctx, r.cache, id)
	return nil
}

func (r *UserPostgreSQL) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})
	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var users []*models.User
	err := query.
		Scopes(paginate(filters.Limit, filters.Offset)).
		Order("created_at DESC").
		Find(&users).Error
	if err != nil {
		return nil, 0, translateError(err)
	}

	return users, total, nil
}

func (r *UserPostgreSQL) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", models.NormalizeEmail(email)).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

type groupCount struct {
	GroupKey string
	Count    int64
}

func (r *UserPostgreSQL) countGroupedBy(ctx context.Context, column string) ([]groupCount, error) {
	var rows []groupCount
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select(column + " AS group_key, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	return rows, nil
}

func (r *UserPostgreSQL) CountByRole(ctx context.Context) (map[models.UserRole]int64, error) {
	var counts map[models.UserRole]int64
	err := r.cache.Stats.CacheOrExecute(ctx, cache.StatsRoleCountsKey, &counts, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		rows, err := r.countGroupedBy(ctx, "role")
		if err != nil {
			return nil, err
		}
		result := make(map[models.UserRole]int64, len(rows))
		for _, row := range rows {
			result[models.UserRole(row.GroupKey)] = row.Count
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *UserPostgreSQL) CountByStatus(ctx context.Context) (map[models.UserStatus]int64, error) {
	var counts map[models.UserStatus]int64
	err := r.cache.Stats.CacheOrExecute(ctx, cache.StatsStatusCountsKey, &counts, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		rows, err := r.countGroupedBy(ctx, "status")
		if err != nil {
			return nil, err
		}
		result := make(map[models.UserStatus]int64, len(rows))
		for _, row := range rows {
			result[models.UserStatus(row.GroupKey)] = row.Count
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *UserPostgreSQL) CountActiveByRole(ctx context.Context, role models.UserRole) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ? AND status = ?", role, models.StatusActive).
		Count(&count).Error
	if err != nil {
		return 0, translateError(err)
	}
	return count, nil
}
