package invitations

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterInvitationRoutes registers the collaboration invitation routes.
func RegisterInvitationRoutes(r *mux.Router, handler *InvitationHandler) {
	r.HandleFunc("/api/v1/invitations", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Invitations] %s %s", r.Method, r.URL.Path)
		handler.ListInvitations(w, r)
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/invitations", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Invitations] %s %s", r.Method, r.URL.Path)
		handler.CreateInvitation(w, r)
	}).Methods(http.MethodPost)

	r.HandleFunc("/api/v1/invitations/{id}/respond", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Invitations] %s %s", r.Method, r.URL.Path)
		handler.Respond(w, r)
	}).Methods(http.MethodPost)
}
