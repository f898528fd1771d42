// Package handler implements the HTTP API surface. Handlers decode requests,
// call into the stores and the scoring service, and write JSON responses.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
)

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
