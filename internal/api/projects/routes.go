package projects

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterProjectRoutes registers the explore and project page routes.
func RegisterProjectRoutes(r *mux.Router, handler *ProjectHandler) {
	r.HandleFunc("/api/v1/projects", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Projects] %s %s", r.Method, r.URL.Path)
		handler.CreateProject(w, r)
	}).Methods(http.MethodPost)

	r.HandleFunc("/api/v1/projects", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Projects] %s %s", r.Method, r.URL.Path)
		handler.ListProjects(w, r)
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Projects] %s %s", r.Method, r.URL.Path)
		handler.GetProject(w, r)
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/projects/{id}/changes", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Projects] %s %s", r.Method, r.URL.Path)
		handler.AddChange(w, r)
	}).Methods(http.MethodPost)
}
