package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"lingua/internal/auth"
	"lingua/internal/chat"
)

type Server struct {
	router *mux.Router
}

func NewServer(authHandler *auth.Handler, supervisor *chat.Supervisor, log *slog.Logger, rps int) *Server {
	router := mux.NewRouter()
	router.Use(Logger(log))
	router.Use(RateLimit(rps))

	router.HandleFunc("/health", healthCheck).Methods("GET")

	router.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	router.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	router.HandleFunc("/auth/refresh", authHandler.Refresh).Methods("POST")
	router.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")

	router.Handle("/ws", supervisor).Methods("GET")

	return &Server{router: router}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
