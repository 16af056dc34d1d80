package relay

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxRequestBytes caps the body of a local invoke request.
const maxRequestBytes = 6 << 20

// NewHTTPHandler serves the relay over HTTP for local runs. The request body is
// a DeliveryBatch and the response a BatchResult, both as JSON.
func NewHTTPHandler(r *Relay, logger zerolog.Logger) http.HandlerFunc {
	logger = logger.With().Str("component", "RelayHTTPHandler").Logger()
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "Only POST method is allowed", http.StatusMethodNotAllowed)
			return
		}

		var batch DeliveryBatch
		if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxRequestBytes)).Decode(&batch); err != nil {
			logger.Warn().Err(err).Msg("Failed to decode delivery batch.")
			http.Error(w, "invalid delivery batch", http.StatusBadRequest)
			return
		}
		if batch.InvocationID == "" {
			batch.InvocationID = uuid.NewString()
		}

		result, err := r.Relay(req.Context(), batch)
		if err != nil {
			if errors.Is(err, ErrMalformedBatch) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "relay failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Invocation-Id", batch.InvocationID)
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.Error().Err(err).Msg("Failed to write response.")
		}
	}
}
