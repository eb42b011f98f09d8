package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// Envelope — единый формат ответа API, включая ошибки из middleware.
type Envelope struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Errors    []string    `json:"errors,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// WriteJSON проставляет timestamp и сериализует envelope в ответ.
func WriteJSON(w http.ResponseWriter, status int, env Envelope) error {
	env.Timestamp = time.Now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(env)
}

// Error пишет envelope с ошибкой — для middleware, где нет логгера под рукой.
func Error(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, Envelope{Success: false, Message: message})
}
