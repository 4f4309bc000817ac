package models

import "time"

// Profile is a researcher profile. Optional columns are pointers, matching the nullable schema.
type Profile struct {
	ID              string    `json:"id"`
	FullName        *string   `json:"fullName"`
	Email           *string   `json:"email"`
	AvatarURL       *string   `json:"avatarUrl"`
	About           *string   `json:"about"`
	KeyQuestion     *string   `json:"keyQuestion"`
	LabAffiliation  *string   `json:"labAffiliation"`
	Organization    *string   `json:"organization"`
	Location        *string   `json:"location"`
	ResearchAreas   *string   `json:"researchAreas"`
	ResearchProject *string   `json:"researchProject"`
	Publications    int       `json:"publications"`
	Citations       int       `json:"citations"`
	Collaborations  int       `json:"collaborations"`
	SignalBoosts    *int      `json:"signalBoosts"` // daily allowance; nil means the configured default
	Tags            []string  `json:"tags"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ProfileSummary is the slice of a profile joined onto other rows (creator, inviter, author).
type ProfileSummary struct {
	ID        string  `json:"id"`
	FullName  string  `json:"fullName"`
	AvatarURL *string `json:"avatarUrl"`
}

// DisplayName falls back to "User" the way the UI does for profiles without a name.
func (p ProfileSummary) DisplayName() string {
	if p.FullName == "" {
		return "User"
	}
	return p.FullName
}

// Summary projects a full profile onto a ProfileSummary.
func (p *Profile) Summary() ProfileSummary {
	s := ProfileSummary{ID: p.ID, AvatarURL: p.AvatarURL}
	if p.FullName != nil {
		s.FullName = *p.FullName
	}
	return s
}
