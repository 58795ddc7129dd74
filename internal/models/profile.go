package models

import "time"

type UserProfile struct {
	FirstName   string       `json:"firstName"`
	LastName    string       `json:"lastName"`
	Avatar      string       `json:"avatar,omitempty"`
	Bio         string       `json:"bio,omitempty"`
	Skills      []string     `json:"skills"`
	Interests   []string     `json:"interests"`
	Education   []Education  `json:"education,omitempty"`
	Experience  []Experience `json:"experience,omitempty"`
	SocialLinks SocialLinks  `json:"socialLinks"`
	Preferences Preferences  `json:"preferences"`
}

type Education struct {
	Institution  string     `json:"institution" validate:"required,max=200"`
	Degree       string     `json:"degree" validate:"required,max=200"`
	FieldOfStudy string     `json:"fieldOfStudy" validate:"required,max=200"`
	StartDate    time.Time  `json:"startDate" validate:"required"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	Current      bool       `json:"current"`
}

type Experience struct {
	Company     string     `json:"company" validate:"required,max=200"`
	Position    string     `json:"position" validate:"required,max=200"`
	Description string     `json:"description,omitempty" validate:"max=2000"`
	StartDate   time.Time  `json:"startDate" validate:"required"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Current     bool       `json:"current"`
}

type SocialLinks struct {
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	Website  string `json:"website,omitempty"`
}

type NotificationPreferences struct {
	Email     bool `json:"email"`
	Push      bool `json:"push"`
	Marketing bool `json:"marketing"`
}

type PrivacyPreferences struct {
	ProfileVisibility string `json:"profileVisibility" validate:"omitempty,oneof=public private"`
	ShowEmail         bool   `json:"showEmail"`
}

type Preferences struct {
	Notifications NotificationPreferences `json:"notifications"`
	Privacy       PrivacyPreferences      `json:"privacy"`
	Theme         string                  `json:"theme"`
}

const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"

	ThemeSystem = "system"
)

// DefaultPreferences are applied to every newly registered account.
func DefaultPreferences() Preferences {
	return Preferences{
		Notifications: NotificationPreferences{Email: true, Push: true, Marketing: false},
		Privacy:       PrivacyPreferences{ProfileVisibility: VisibilityPublic, ShowEmail: false},
		Theme:         ThemeSystem,
	}
}

// NewUserProfile builds a profile with empty collections and default preferences.
func NewUserProfile(firstName, lastName string) UserProfile {
	return UserProfile{
		FirstName:   firstName,
		LastName:    lastName,
		Skills:      []string{},
		Interests:   []string{},
		Preferences: DefaultPreferences(),
	}
}

func (p UserProfile) Clone() UserProfile {
	c := p
	c.Skills = append([]string{}, p.Skills...)
	c.Interests = append([]string{}, p.Interests...)
	if p.Education != nil {
		c.Education = append([]Education(nil), p.Education...)
	}
	if p.Experience != nil {
		c.Experience = append([]Experience(nil), p.Experience...)
	}
	return c
}
