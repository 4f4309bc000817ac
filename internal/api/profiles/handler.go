package profiles

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/samrogers05/genesis/internal/api"
	"github.com/samrogers05/genesis/internal/models"
	"github.com/samrogers05/genesis/internal/storage"
	"github.com/samrogers05/genesis/internal/storage/objects"
)

const AvatarFolder = "avatars"

type Store interface {
	GetProfile(ctx context.Context, profileID string) (models.Profile, error)
	UpsertProfile(ctx context.Context, p models.Profile) (models.Profile, error)
	ProjectsByCreator(ctx context.Context, profileID string) ([]models.Project, error)
}

type ProfileHandler struct {
	Store   Store
	Objects objects.Store
}

// profileRequest holds the fields a user may edit. Counters and the boost allowance are
// not among them.
type profileRequest struct {
	FullName        *string  `json:"fullName"`
	Email           *string  `json:"email"`
	About           *string  `json:"about"`
	KeyQuestion     *string  `json:"keyQuestion"`
	LabAffiliation  *string  `json:"labAffiliation"`
	Organization    *string  `json:"organization"`
	Location        *string  `json:"location"`
	ResearchAreas   *string  `json:"researchAreas"`
	ResearchProject *string  `json:"researchProject"`
	Tags            []string `json:"tags"`
}

type profileResponse struct {
	Profile  models.Profile   `json:"profile"`
	Projects []models.Project `json:"projects"`
}

// GetProfile returns a profile and the projects it created. "me" is the signed-in user.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.CurrentUser(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	if id == "me" {
		id = userID
	}

	p, err := h.Store.GetProfile(r.Context(), id)
	if err != nil {
		api.StorageError(w, r, err, "Profile")
		return
	}
	projects, err := h.Store.ProjectsByCreator(r.Context(), id)
	if err != nil {
		api.StorageError(w, r, err, "Profile")
		return
	}
	api.JSON(w, http.StatusOK, profileResponse{Profile: p, Projects: projects})
}

// UpdateProfile upserts the signed-in user's profile from JSON, or from a multipart form
// that may carry an "avatar" image.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.CurrentUser(w, r)
	if !ok {
		return
	}

	var (
		req       profileRequest
		avatarURL string
	)
	if isMultipart(r) {
		if req, avatarURL, ok = h.readForm(w, r); !ok {
			return
		}
	} else if !api.Decode(w, r, &req) {
		return
	}

	p := models.Profile{
		ID:              userID,
		FullName:        trimmed(req.FullName),
		Email:           trimmed(req.Email),
		About:           trimmed(req.About),
		KeyQuestion:     trimmed(req.KeyQuestion),
		LabAffiliation:  trimmed(req.LabAffiliation),
		Organization:    trimmed(req.Organization),
		Location:        trimmed(req.Location),
		ResearchAreas:   trimmed(req.ResearchAreas),
		ResearchProject: trimmed(req.ResearchProject),
		Tags:            req.Tags,
	}

	existing, err := h.Store.GetProfile(r.Context(), userID)
	switch {
	case err == nil:
		p.AvatarURL = existing.AvatarURL
	case !errors.Is(err, storage.ErrNotFound):
		api.StorageError(w, r, err, "Profile")
		return
	}
	if avatarURL != "" {
		p.AvatarURL = &avatarURL
	}

	saved, err := h.Store.UpsertProfile(r.Context(), p)
	if err != nil {
		api.StorageError(w, r, err, "Profile")
		return
	}
	if avatarURL != "" && existing.AvatarURL != nil && h.Objects != nil {
		if err := h.Objects.Delete(r.Context(), *existing.AvatarURL); err != nil {
			slog.WarnContext(r.Context(), "error deleting previous avatar", "error", err)
		}
	}
	api.JSON(w, http.StatusOK, saved)
}

func (h *ProfileHandler) readForm(w http.ResponseWriter, r *http.Request) (profileRequest, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, objects.MaxUploadSize+api.MaxBodySize)
	if err := r.ParseMultipartForm(objects.MaxUploadSize); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid form data")
		return profileRequest{}, "", false
	}
	field := func(name string) *string {
		if _, ok := r.MultipartForm.Value[name]; !ok {
			return nil
		}
		v := r.FormValue(name)
		return &v
	}
	req := profileRequest{
		FullName:        field("fullName"),
		Email:           field("email"),
		About:           field("about"),
		KeyQuestion:     field("keyQuestion"),
		LabAffiliation:  field("labAffiliation"),
		Organization:    field("organization"),
		Location:        field("location"),
		ResearchAreas:   field("researchAreas"),
		ResearchProject: field("researchProject"),
	}
	for _, v := range r.MultipartForm.Value["tags"] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				req.Tags = append(req.Tags, t)
			}
		}
	}

	file, header, err := r.FormFile("avatar")
	if errors.Is(err, http.ErrMissingFile) {
		return req, "", true
	}
	if err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid avatar")
		return profileRequest{}, "", false
	}
	defer file.Close()

	if h.Objects == nil {
		api.Error(w, http.StatusServiceUnavailable, "Avatar uploads are not configured")
		return profileRequest{}, "", false
	}
	url, err := h.Objects.Upload(r.Context(), file, header.Filename, AvatarFolder)
	if errors.Is(err, objects.ErrUnsupportedType) {
		api.Error(w, http.StatusUnsupportedMediaType, "Avatar must be a JPEG, PNG, GIF or WebP image")
		return profileRequest{}, "", false
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "error uploading avatar", "error", err)
		api.Error(w, http.StatusBadGateway, "Failed to upload avatar")
		return profileRequest{}, "", false
	}
	return req, url, true
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// trimmed maps blank values to nil so they are stored as NULL.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
