package projects

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/samrogers05/genesis/internal/api"
	"github.com/samrogers05/genesis/internal/logger"
	"github.com/samrogers05/genesis/internal/models"
	"github.com/samrogers05/genesis/internal/storage/objects"
)

// PhotoFolder is the bucket folder project photos are uploaded to.
const PhotoFolder = "projects"

type Store interface {
	CreateProject(ctx context.Context, p models.Project) (models.Project, error)
	GetProject(ctx context.Context, projectID string) (models.Project, error)
	ListProjects(ctx context.Context, f models.ProjectFilter) ([]models.Project, error)
	AddProjectChange(ctx context.Context, projectID, authorID, description string) (models.ProjectChange, error)
}

// Publisher announces new projects to live feeds.
type Publisher interface {
	PublishProjectCreated(ctx context.Context, p models.Project) error
}

type ProjectHandler struct {
	Store     Store
	Objects   objects.Store // optional; photo uploads are refused without it
	Publisher Publisher     // optional
}

type createRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Visibility  string   `json:"visibility"`
	Tags        []string `json:"tags"`
}

type changeRequest struct {
	Description string `json:"description"`
}

// CreateProject accepts JSON or a multipart form with an optional "photo" image.
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.CurrentUser(w, r)
	if !ok {
		return
	}
	ctx := logger.WithLogFields(r.Context(), logger.LogFields{Component: "genesis.api.projects"})

	var (
		req      createRequest
		photoURL string
	)
	if isMultipart(r) {
		if req, photoURL, ok = h.readForm(ctx, w, r); !ok {
			return
		}
	} else if !api.Decode(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		h.discardPhoto(ctx, photoURL)
		api.Error(w, http.StatusBadRequest, "Project name is required")
		return
	}

	p := models.Project{
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
		Visibility:  req.Visibility,
		CreatedBy:   userID,
		Tags:        req.Tags,
	}
	if photoURL != "" {
		p.Photo = &photoURL
	}

	created, err := h.Store.CreateProject(ctx, p)
	if err != nil {
		h.discardPhoto(ctx, photoURL)
		api.StorageError(w, r, err, "Project")
		return
	}
	slog.InfoContext(ctx, "project created", "project_id", created.ID, "name", created.Name)

	if h.Publisher != nil {
		if err := h.Publisher.PublishProjectCreated(ctx, created); err != nil {
			slog.WarnContext(ctx, "error publishing project event", "project_id", created.ID, "error", err)
		}
	}
	api.JSON(w, http.StatusCreated, created)
}

// readForm parses the multipart body and uploads the photo if one was sent.
func (h *ProjectHandler) readForm(ctx context.Context, w http.ResponseWriter, r *http.Request) (createRequest, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, objects.MaxUploadSize+api.MaxBodySize)
	if err := r.ParseMultipartForm(objects.MaxUploadSize); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid form data")
		return createRequest{}, "", false
	}
	req := createRequest{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Location:    r.FormValue("location"),
		Visibility:  r.FormValue("visibility"),
		Tags:        splitTags(r.MultipartForm.Value["tags"]),
	}

	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return req, "", true
	}
	if err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid photo")
		return createRequest{}, "", false
	}
	defer file.Close()

	if h.Objects == nil {
		api.Error(w, http.StatusServiceUnavailable, "Photo uploads are not configured")
		return createRequest{}, "", false
	}
	url, err := h.Objects.Upload(ctx, file, header.Filename, PhotoFolder)
	if errors.Is(err, objects.ErrUnsupportedType) {
		api.Error(w, http.StatusUnsupportedMediaType, "Photo must be a JPEG, PNG, GIF or WebP image")
		return createRequest{}, "", false
	}
	if err != nil {
		slog.ErrorContext(ctx, "error uploading project photo", "error", err)
		api.Error(w, http.StatusBadGateway, "Failed to upload photo")
		return createRequest{}, "", false
	}
	return req, url, true
}

func (h *ProjectHandler) discardPhoto(ctx context.Context, url string) {
	if url == "" || h.Objects == nil {
		return
	}
	if err := h.Objects.Delete(ctx, url); err != nil {
		slog.WarnContext(ctx, "error deleting orphaned photo", "url", url, "error", err)
	}
}

// ListProjects is the explore listing: newest first, filtered by ?tag=, ?location= and ?q=.
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	if _, ok := api.CurrentUser(w, r); !ok {
		return
	}
	q := r.URL.Query()
	projects, err := h.Store.ListProjects(r.Context(), models.ProjectFilter{
		Tag:      strings.TrimSpace(q.Get("tag")),
		Location: strings.TrimSpace(q.Get("location")),
		Search:   strings.TrimSpace(q.Get("q")),
	})
	if err != nil {
		api.StorageError(w, r, err, "Project")
		return
	}
	api.JSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	if _, ok := api.CurrentUser(w, r); !ok {
		return
	}
	id := mux.Vars(r)["id"]
	ctx := logger.WithLogFields(r.Context(), logger.LogFields{ProjectID: logger.Ptr(id)})
	p, err := h.Store.GetProject(ctx, id)
	if err != nil {
		api.StorageError(w, r.WithContext(ctx), err, "Project")
		return
	}
	api.JSON(w, http.StatusOK, p)
}

// AddChange records an update to a project; it shows up in the feed as a project_update.
func (h *ProjectHandler) AddChange(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.CurrentUser(w, r)
	if !ok {
		return
	}
	var req changeRequest
	if !api.Decode(w, r, &req) {
		return
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		api.Error(w, http.StatusBadRequest, "Description is required")
		return
	}

	id := mux.Vars(r)["id"]
	ctx := logger.WithLogFields(r.Context(), logger.LogFields{ProjectID: logger.Ptr(id)})
	change, err := h.Store.AddProjectChange(ctx, id, userID, desc)
	if err != nil {
		api.StorageError(w, r.WithContext(ctx), err, "Project")
		return
	}
	api.JSON(w, http.StatusCreated, change)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// splitTags accepts repeated fields as well as comma separated lists.
func splitTags(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}
