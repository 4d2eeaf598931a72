package handlers

import (
	"errors"
	"net/http"

	"imposter/internal/game"
	"imposter/internal/middleware"
	"imposter/internal/rooms"
	"imposter/internal/store"
)

var (
	errBadRequest = errors.New("malformed request body")
	errTooLarge   = errors.New("request body too large")
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings is checked in order with errors.Is
var errorMappings = []errorMapping{
	{store.ErrNotFound, http.StatusNotFound, "room_not_found"},
	{game.ErrPlayerNotFound, http.StatusNotFound, "player_not_found"},

	{rooms.ErrNotHost, http.StatusForbidden, "not_host"},
	{rooms.ErrNotImposter, http.StatusForbidden, "not_imposter"},

	{game.ErrInvalidTransition, http.StatusConflict, "invalid_phase"},
	{game.ErrNotEnoughPlayers, http.StatusConflict, "not_enough_players"},
	{game.ErrCatalogTooSmall, http.StatusConflict, "catalog_too_small"},
	{game.ErrNoDomain, http.StatusConflict, "no_domain"},
	{game.ErrNoItem, http.StatusConflict, "no_item"},

	{errBadRequest, http.StatusBadRequest, "bad_request"},
	{errTooLarge, http.StatusRequestEntityTooLarge, "too_large"},
	{game.ErrEmptyName, http.StatusBadRequest, "empty_name"},
	{game.ErrDuplicateName, http.StatusBadRequest, "duplicate_name"},
	{game.ErrEmptyRoomCode, http.StatusBadRequest, "empty_room_code"},
	{game.ErrSelfVote, http.StatusBadRequest, "self_vote"},
	{game.ErrUnknownDomain, http.StatusBadRequest, "unknown_domain"},
	{game.ErrInvalidMinPlayers, http.StatusBadRequest, "invalid_min_players"},
	{rooms.ErrUnknownAction, http.StatusBadRequest, "unknown_action"},
	{rooms.ErrInvalidGuess, http.StatusBadRequest, "invalid_guess"},

	{rooms.ErrBusy, http.StatusServiceUnavailable, "busy"},
	{rooms.ErrNoFreeCode, http.StatusServiceUnavailable, "no_free_code"},
	{store.ErrConflict, http.StatusServiceUnavailable, "busy"},
}

func classify(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// writeError maps err to a status and a JSON body. Unmapped errors are
// logged and reported without detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		msg = "internal server error"
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
