package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"proctor-quiz-service/internal/app"
	"proctor-quiz-service/internal/domain"
)

// NewMux registers the presentation socket, stored result lookup and health probe.
func NewMux(proctor *app.Proctor, logger *zap.Logger) *http.ServeMux {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(proctor, logger).ServeWS)
	mux.HandleFunc("GET /results/{id}", func(w http.ResponseWriter, r *http.Request) {
		result, err := proctor.Result(r.Context(), r.PathValue("id"))
		switch {
		case errors.Is(err, domain.ErrResultNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case err != nil:
			logger.Error("result lookup failed", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
