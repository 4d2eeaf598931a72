// Package handlers exposes the room service as JSON over HTTP. Clients poll
// GET /rooms/{code} for their view and post actions back.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"imposter/internal/config"
	"imposter/internal/rooms"
	"imposter/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// readinessProbeCode is never a valid room code, so loading it only
// exercises the store connection
const readinessProbeCode = "__ready__"

// Handler holds dependencies for HTTP handlers
type Handler struct {
	svc       *rooms.Service
	store     store.Store
	log       zerolog.Logger
	publicURL string
}

// New creates a new handler
func New(svc *rooms.Service, st store.Store, cfg *config.ServerConfig, log zerolog.Logger) *Handler {
	return &Handler{
		svc:       svc,
		store:     st,
		log:       log,
		publicURL: cfg.Server.PublicURL,
	}
}

type nameRequest struct {
	Name string `json:"name"`
}

type actionRequest struct {
	Player string `json:"player"`
	rooms.Action
}

type domainsResponse struct {
	Domains []string `json:"domains"`
}

// CreateRoom opens a room hosted by the posted name
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.svc.Create(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/rooms/"+view.RoomCode)
	writeJSON(w, http.StatusCreated, view)
}

// JoinRoom adds the posted name to the room, or rejoins an existing player
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	view, _, err := h.svc.Join(r.Context(), chi.URLParam(r, "code"), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetRoom returns the room as seen by the ?player= viewer
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Get(r.Context(), chi.URLParam(r, "code"), r.URL.Query().Get("player"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ApplyAction performs one player action
func (h *Handler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.svc.Apply(r.Context(), chi.URLParam(r, "code"), req.Player, req.Action)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Domains lists the domains a host can choose from
func (h *Handler) Domains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domainsResponse{Domains: h.svc.Domains()})
}

// Ready reports whether the store answers
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.ping(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "store unavailable", Code: "not_ready"})
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) ping(ctx context.Context) error {
	_, err := h.store.Load(ctx, readinessProbeCode)
	if err == nil || errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit is %d bytes", errTooLarge, tooLarge.Limit)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
