package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/auth-service/internal/models"
	"github.com/SAP-F-2025/auth-service/internal/repositories"
	"github.com/SAP-F-2025/auth-service/internal/validator"
)

type profileService struct {
	repo         repositories.Repository
	logger       *slog.Logger
	validator    *validator.Validator
	storeTimeout time.Duration
}

func NewProfileService(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	storeTimeout time.Duration,
) ProfileService {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &profileService{
		repo:         repo,
		logger:       logger,
		validator:    validator,
		storeTimeout: storeTimeout,
	}
}

func (s *profileService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sanitize(user), nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID string, req *models.ProfileUpdateRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, NewValidationError(err)
	}

	return s.mutate(ctx, userID, func(p *models.UserProfile) {
		if req.FirstName != nil {
			p.FirstName = strings.TrimSpace(*req.FirstName)
		}
		if req.LastName != nil {
			p.LastName = strings.TrimSpace(*req.LastName)
		}
		if req.Bio != nil {
			p.Bio = *req.Bio
		}
		if req.Avatar != nil {
			p.Avatar = *req.Avatar
		}
		if req.Skills != nil {
			p.Skills = dedupe(req.Skills)
		}
		if req.Interests != nil {
			p.Interests = dedupe(req.Interests)
		}
		if req.SocialLinks != nil {
			mergeSocialLinks(&p.SocialLinks, req.SocialLinks)
		}
		if req.Preferences != nil {
			mergePreferences(&p.Preferences, req.Preferences)
		}
	})
}

func (s *profileService) AddEducation(ctx context.Context, userID string, education *models.Education) (*models.User, error) {
	if err := s.validator.Validate(education); err != nil {
		return nil, NewValidationError(err)
	}

	return s.mutate(ctx, userID, func(p *models.UserProfile) {
		p.Education = append(p.Education, *education)
	})
}

func (s *profileService) AddExperience(ctx context.Context, userID string, experience *models.Experience) (*models.User, error) {
	if err := s.validator.Validate(experience); err != nil {
		return nil, NewValidationError(err)
	}

	return s.mutate(ctx, userID, func(p *models.UserProfile) {
		p.Experience = append(p.Experience, *experience)
	})
}

func (s *profileService) UpdateSkills(ctx context.Context, userID string, skills []string) (*models.User, error) {
	if err := s.validator.Validate(&models.SkillsRequest{Skills: skills}); err != nil {
		return nil, NewValidationError(err)
	}

	return s.mutate(ctx, userID, func(p *models.UserProfile) {
		p.Skills = dedupe(skills)
	})
}

func (s *profileService) UpdateInterests(ctx context.Context, userID string, interests []string) (*models.User, error) {
	if err := s.validator.Validate(&models.InterestsRequest{Interests: interests}); err != nil {
		return nil, NewValidationError(err)
	}

	return s.mutate(ctx, userID, func(p *models.UserProfile) {
		p.Interests = dedupe(interests)
	})
}

func (s *profileService) load(ctx context.Context, userID string) (*models.User, error) {
	user, err := withStoreTimeout(ctx, s.storeTimeout, func(ctx context.Context) (*models.User, error) {
		return s.repo.User().GetByID(ctx, userID)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, storeError(err)
	}
	return user, nil
}

// mutate applies fn to a copy of the stored profile and persists the result.
func (s *profileService) mutate(ctx context.Context, userID string, fn func(p *models.UserProfile)) (*models.User, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := user.Profile.Data().Clone()
	fn(&profile)
	user.Profile = datatypes.NewJSONType(profile)

	_, err = withStoreTimeout(ctx, s.storeTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.User().Update(ctx, user)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, storeError(err)
	}

	s.logger.InfoContext(ctx, "Profile updated", "user_id", userID)
	return sanitize(user), nil
}

func mergeSocialLinks(dst *models.SocialLinks, src *models.SocialLinks) {
	if src.LinkedIn != "" {
		dst.LinkedIn = src.LinkedIn
	}
	if src.GitHub != "" {
		dst.GitHub = src.GitHub
	}
	if src.Twitter != "" {
		dst.Twitter = src.Twitter
	}
	if src.Website != "" {
		dst.Website = src.Website
	}
}

func mergePreferences(dst *models.Preferences, src *models.PreferencesUpdate) {
	if src.Notifications != nil {
		dst.Notifications = *src.Notifications
	}
	if src.Privacy != nil {
		visibility := src.Privacy.ProfileVisibility
		if visibility == "" {
			visibility = dst.Privacy.ProfileVisibility
		}
		dst.Privacy = *src.Privacy
		dst.Privacy.ProfileVisibility = visibility
	}
	if src.Theme != nil {
		dst.Theme = *src.Theme
	}
}

// dedupe trims entries and drops blanks and case-insensitive repeats, keeping first occurrence.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
