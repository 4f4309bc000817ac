package profiles

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterProfileRoutes registers the profile page routes.
func RegisterProfileRoutes(r *mux.Router, handler *ProfileHandler) {
	r.HandleFunc("/api/v1/profiles/me", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Profiles] %s %s", r.Method, r.URL.Path)
		handler.UpdateProfile(w, r)
	}).Methods(http.MethodPut)

	r.HandleFunc("/api/v1/profiles/{id}", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Profiles] %s %s", r.Method, r.URL.Path)
		handler.GetProfile(w, r)
	}).Methods(http.MethodGet)
}
