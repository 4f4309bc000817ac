package feed

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterFeedRoutes registers the feed, signal boost and feed WebSocket routes.
func RegisterFeedRoutes(r *mux.Router, handler *FeedHandler) {
	r.HandleFunc("/api/v1/feed", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Feed] %s %s", r.Method, r.URL.Path)
		handler.GetFeed(w, r)
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/feed/boost", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Feed] %s %s", r.Method, r.URL.Path)
		handler.Boost(w, r)
	}).Methods(http.MethodPost)

	r.HandleFunc("/ws/feed", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Feed] WebSocket %s", r.URL.Path)
		handler.ServeWS(w, r)
	}).Methods(http.MethodGet)
}
