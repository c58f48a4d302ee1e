package api

import (
	"encoding/json"
	"log"
	"net/http"
)

// ConnectionChecker reports whether a downstream dependency is reachable.
type ConnectionChecker interface {
	IsConnected() bool
}

type Handler struct {
	checkers []ConnectionChecker
}

type HealthResponse struct {
	Status string `json:"status"`
}

func NewHandler(checkers ...ConnectionChecker) *Handler {
	return &Handler{checkers: checkers}
}

func (h *Handler) GetHealth(w http.ResponseWriter, _ *http.Request) {
	status := "UP"
	code := http.StatusOK
	for _, checker := range h.checkers {
		if !checker.IsConnected() {
			status = "DOWN"
			code = http.StatusServiceUnavailable
			break
		}
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(HealthResponse{
		Status: status,
	})
	if err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
