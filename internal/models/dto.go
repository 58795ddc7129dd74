package models

type RegisterProfileRequest struct {
	FirstName string `json:"firstName" validate:"required,min=1,max=100"`
	LastName  string `json:"lastName" validate:"required,min=1,max=100"`
}

type RegisterRequest struct {
	Email    string                 `json:"email" validate:"required,email,max=255"`
	Password string                 `json:"password" validate:"required,password_strength"`
	Role     UserRole               `json:"role" validate:"omitempty,self_assignable_role"`
	Profile  RegisterProfileRequest `json:"profile"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User         *User  `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type TokenPairResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type UserResponse struct {
	User *User `json:"user"`
}

// Admin

type UpdateRoleRequest struct {
	Role UserRole `json:"role" validate:"required,user_role"`
}

type UpdateStatusRequest struct {
	Status UserStatus `json:"status" validate:"required,user_status"`
}

type UserListResponse struct {
	Users []*User `json:"users"`
	Total int64   `json:"total"`
	Page  int     `json:"page"`
	Size  int     `json:"size"`
}

type SystemStats struct {
	TotalUsers     int64              `json:"totalUsers"`
	ActiveUsers    int64              `json:"activeUsers"`
	SuspendedUsers int64              `json:"suspendedUsers"`
	ByRole         map[UserRole]int64 `json:"byRole"`
}

// Profile

// ProfileUpdateRequest carries a partial update; nil fields are left unchanged.
type ProfileUpdateRequest struct {
	FirstName   *string            `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName    *string            `json:"lastName" validate:"omitempty,min=1,max=100"`
	Bio         *string            `json:"bio" validate:"omitempty,max=500"`
	Avatar      *string            `json:"avatar" validate:"omitempty,max=500"`
	Skills      []string           `json:"skills" validate:"omitempty,max=50,dive,min=1,max=50"`
	Interests   []string           `json:"interests" validate:"omitempty,max=50,dive,min=1,max=50"`
	SocialLinks *SocialLinks       `json:"socialLinks"`
	Preferences *PreferencesUpdate `json:"preferences" validate:"omitempty"`
}

type PreferencesUpdate struct {
	Notifications *NotificationPreferences `json:"notifications"`
	Privacy       *PrivacyPreferences      `json:"privacy"`
	Theme         *string                  `json:"theme" validate:"omitempty,oneof=light dark system"`
}

type SkillsRequest struct {
	Skills []string `json:"skills" validate:"max=50,dive,min=1,max=50"`
}

type InterestsRequest struct {
	Interests []string `json:"interests" validate:"max=50,dive,min=1,max=50"`
}
