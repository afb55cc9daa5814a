package api

import (
	"encoding/json"
	"net/http"

	"github.com/rovshanmuradov/pumpbundle/internal/relay"
)

type errorResponse struct {
	Error  string `json:"error"`
	Prompt string `json:"prompt,omitempty"`
}

type resultResponse struct {
	Mode        relay.Mode `json:"mode"`
	Success     bool       `json:"success"`
	Signature   string     `json:"signature,omitempty"`
	Signatures  []string   `json:"signatures,omitempty"`
	BundleID    string     `json:"bundle_id,omitempty"`
	ExplorerURL string     `json:"explorer_url,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func newResultResponse(res relay.Result) resultResponse {
	return resultResponse{
		Mode:        res.Mode,
		Success:     res.Success,
		Signature:   res.Signature,
		Signatures:  res.Signatures,
		BundleID:    res.BundleID,
		ExplorerURL: res.ExplorerURL,
		Error:       res.ErrorDetail(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
