package publications

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

func RegisterPublicationRoutes(r *mux.Router, handler *PublicationHandler) {
	r.HandleFunc("/api/v1/publications/import", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Publications] %s %s", r.Method, r.URL.Path)
		handler.ImportFeed(w, r)
	}).Methods(http.MethodPost)
}
