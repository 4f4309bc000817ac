package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/samrogers05/genesis/internal/models"
	"github.com/samrogers05/genesis/internal/storage"
)

// CreateProject stores a new project. The creator is recorded as its first collaborator.
func (s *Store) CreateProject(_ context.Context, p models.Project) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = uuid.NewString()
	p.CreatedAt = s.now().UTC()
	p.SignalBoosts = 0
	p.Tags = uniqueTags(p.Tags)
	if p.Visibility == "" {
		p.Visibility = "public"
	}
	stored := p
	stored.Creator = nil
	stored.Collaborators = nil
	s.projects[p.ID] = &stored
	s.collaborators[p.ID] = []string{p.CreatedBy}

	return s.projectView(&stored, false), nil
}

// GetProject returns a project with its creator and collaborators.
func (s *Store) GetProject(_ context.Context, projectID string) (models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[projectID]
	if !ok {
		return models.Project{}, fmt.Errorf("project %s: %w", projectID, storage.ErrNotFound)
	}
	return s.projectView(p, true), nil
}

// ListProjects returns projects matching the filter, newest first.
func (s *Store) ListProjects(_ context.Context, f models.ProjectFilter) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.Project, 0)
	for _, p := range s.projects {
		if f.Tag != "" && !hasTag(p.Tags, f.Tag) {
			continue
		}
		if f.Location != "" && p.Location != f.Location {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, s.projectView(p, false))
	}
	sortNewestFirst(out)
	return out, nil
}

// ProjectsByCreator lists the projects a profile created, newest first.
func (s *Store) ProjectsByCreator(_ context.Context, profileID string) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Project, 0)
	for _, p := range s.projects {
		if p.CreatedBy == profileID {
			out = append(out, s.projectView(p, false))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// AddProjectChange records an update to a project. Only the creator and collaborators may
// record changes.
func (s *Store) AddProjectChange(_ context.Context, projectID, authorID, description string) (models.ProjectChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectID]
	if !ok {
		return models.ProjectChange{}, fmt.Errorf("project %s: %w", projectID, storage.ErrNotFound)
	}
	if !s.isCollaborator(projectID, authorID) {
		return models.ProjectChange{}, fmt.Errorf("user %s on project %s: %w", authorID, projectID, storage.ErrForbidden)
	}

	change := models.ProjectChange{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		ProjectName: p.Name,
		Description: description,
		Author:      s.summary(authorID),
		CreatedAt:   s.now().UTC(),
	}
	s.changes = append(s.changes, change)
	return change, nil
}

func (s *Store) addCollaborator(projectID, profileID string) {
	if s.isCollaborator(projectID, profileID) {
		return
	}
	s.collaborators[projectID] = append(s.collaborators[projectID], profileID)
}

func (s *Store) isCollaborator(projectID, profileID string) bool {
	for _, id := range s.collaborators[projectID] {
		if id == profileID {
			return true
		}
	}
	return false
}

// projectView copies a stored project and joins the creator, and optionally the collaborators.
func (s *Store) projectView(p *models.Project, withCollaborators bool) models.Project {
	out := *p
	out.Tags = append([]string(nil), p.Tags...)
	out.Creator = s.summary(p.CreatedBy)
	if withCollaborators {
		out.Collaborators = make([]models.ProfileSummary, 0, len(s.collaborators[p.ID]))
		for _, id := range s.collaborators[p.ID] {
			out.Collaborators = append(out.Collaborators, *s.summary(id))
		}
	}
	return out
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func uniqueTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func sortNewestFirst(projects []models.Project) {
	sort.Slice(projects, func(i, j int) bool {
		if !projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].CreatedAt.After(projects[j].CreatedAt)
		}
		return projects[i].ID < projects[j].ID
	})
}
