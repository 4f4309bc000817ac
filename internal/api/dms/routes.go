package dms

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterDMRoutes registers all DM-related HTTP and WebSocket routes.
func RegisterDMRoutes(r *mux.Router, handler *DMHandler) {
	r.HandleFunc("/api/v1/dms/list", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[DM] %s %s", r.Method, r.URL.Path)
		handler.ListConversations(w, r)
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/dms/messages", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[DM] %s %s", r.Method, r.URL.Path)
		handler.GetMessages(w, r)
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/dms/send", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[DM] %s %s", r.Method, r.URL.Path)
		handler.SendMessage(w, r)
	}).Methods(http.MethodPost)

	r.HandleFunc("/ws/dms", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[DM] WebSocket %s", r.URL.Path)
		handler.ServeWS(w, r)
	}).Methods(http.MethodGet)
}
