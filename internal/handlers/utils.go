package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"avplay/internal/logging"
	"avplay/internal/player"
	"avplay/internal/playlist"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatusCode writes v with the given status code.
func writeJSONStatusCode(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatusCode(w, statusCode, map[string]string{"error": message})
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, player.ErrNoPlaylist):
		return http.StatusConflict
	case errors.Is(err, player.ErrIndexOutOfRange),
		errors.Is(err, playlist.ErrIndexOutOfRange),
		errors.Is(err, playlist.ErrEmptyLocation),
		errors.Is(err, playlist.ErrUnknownField),
		errors.Is(err, playlist.ErrFormatUndetermined),
		errors.Is(err, playlist.ErrNoCodec),
		errors.Is(err, playlist.ErrUnknownEncoding):
		return http.StatusBadRequest
	case errors.Is(err, player.ErrUnplayableLocation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, player.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, player.ErrReleased):
		return http.StatusServiceUnavailable
	case errors.Is(err, player.ErrBackend):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err with the status errorStatus picks for it.
func writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logging.Error("request failed: %v", err)
	}
	writeJSONError(w, err.Error(), status)
}
