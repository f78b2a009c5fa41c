package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/malonaz/meme-api/go/avatar"
	httpserver "github.com/malonaz/meme-api/go/http"
)

// RegisterRoutes registers the meme and health routes on the server.
func (r *Renderer) RegisterRoutes(server *httpserver.Server) error {
	if err := server.RegisterRoute("GET /meme", r.handleMeme); err != nil {
		return err
	}
	return server.RegisterRoute("GET /healthz", r.handleHealthz)
}

func (r *Renderer) handleMeme(w http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	identity, err := strconv.ParseInt(request.URL.Query().Get("qq"), 10, 64)
	if err != nil || identity < MinIdentity || identity > MaxIdentity {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("qq must be an integer in [%d, %d]", MinIdentity, MaxIdentity))
		return
	}

	payload, err := r.Render(ctx, identity, request.URL.Query().Get("name"))
	switch {
	case errors.Is(err, ErrTemplateMissing):
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	case errors.Is(err, avatar.ErrFetch):
		writeError(w, http.StatusBadGateway, err.Error())
		return
	case err != nil:
		r.log.ErrorContext(ctx, "render failed", "identity", identity, "error", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(payload)
}

func (r *Renderer) handleHealthz(w http.ResponseWriter, request *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(r.Health())
}

// writeError writes a structured JSON error payload.
func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
