package models

import "time"

// Project is a research project created by a profile.
type Project struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Location      string           `json:"location"`
	Photo         *string          `json:"photo"`
	Visibility    string           `json:"visibility"`
	SignalBoosts  int              `json:"signalBoosts"` // total boosts received
	CreatedBy     string           `json:"createdBy"`
	Creator       *ProfileSummary  `json:"creator,omitempty"`
	Tags          []string         `json:"tags"`
	Collaborators []ProfileSummary `json:"collaborators,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// ProjectChange is a row of the Change table: a recorded update to a project.
type ProjectChange struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"projectId"`
	ProjectName string          `json:"projectName"`
	Description string          `json:"description"`
	Author      *ProfileSummary `json:"author,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Publication is a paper attributed to a profile.
type Publication struct {
	ID        string          `json:"id"`
	ProfileID string          `json:"profileId"`
	Title     string          `json:"title"`
	Abstract  string          `json:"abstract"`
	Journal   string          `json:"journal"`
	DOI       string          `json:"doi"`
	Year      int             `json:"year"`
	Author    *ProfileSummary `json:"author,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ProjectFilter narrows the explore listing. Empty fields do not filter.
type ProjectFilter struct {
	Tag      string
	Location string
	Search   string
}
