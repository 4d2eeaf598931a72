package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"imposter/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
)

// joinInfoResponse tells someone who scanned a room's QR code how to take a
// seat
type joinInfoResponse struct {
	RoomCode string     `json:"room_code"`
	Phase    game.Phase `json:"phase"`
	Players  []string   `json:"players"`
	JoinURL  string     `json:"join_url"`
	Method   string     `json:"method"`
	Body     string     `json:"body"`
}

// JoinInfo is the page a room's QR code opens
func (h *Handler) JoinInfo(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Get(r.Context(), chi.URLParam(r, "code"), "")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	players := make([]string, len(view.Players))
	for i, p := range view.Players {
		players[i] = p.Name
	}
	writeJSON(w, http.StatusOK, joinInfoResponse{
		RoomCode: view.RoomCode,
		Phase:    view.Phase,
		Players:  players,
		JoinURL:  h.joinURL(r, view.RoomCode),
		Method:   http.MethodPost,
		Body:     `{"name":"<your name>"}`,
	})
}

// RoomQRCode serves a PNG QR code pointing at the room's join URL
func (h *Handler) RoomQRCode(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Get(r.Context(), chi.URLParam(r, "code"), "")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	joinURL := h.joinURL(r, view.RoomCode)
	png, err := generateQRCode(joinURL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("X-Join-URL", joinURL)
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) joinURL(r *http.Request, code string) string {
	base := h.publicURL
	if base == "" {
		base = getBaseURL(r)
	}
	return strings.TrimRight(base, "/") + "/rooms/" + code + "/join"
}

// bufferCloser lets the QR writer target an in-memory buffer
type bufferCloser struct {
	*bytes.Buffer
}

func (bufferCloser) Close() error { return nil }

// generateQRCode renders url as PNG bytes
func generateQRCode(url string) ([]byte, error) {
	// Create QR code with medium error correction level
	qrc, err := qrcode.NewWith(url,
		qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionMedium),
		qrcode.WithEncodingMode(qrcode.EncModeByte),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	var buf bytes.Buffer
	w := standard.NewWithWriter(bufferCloser{&buf},
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
		standard.WithQRWidth(8), // 8 pixels per module
	)

	if err := qrc.Save(w); err != nil {
		return nil, fmt.Errorf("failed to save QR code: %w", err)
	}
	return buf.Bytes(), nil
}

// getBaseURL constructs the base URL from the request
func getBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	// Check for X-Forwarded-Proto header (common in reverse proxy setups)
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}

	host := r.Host
	if forwardedHost := r.Header.Get("X-Forwarded-Host"); forwardedHost != "" {
		host = forwardedHost
	}

	return fmt.Sprintf("%s://%s", scheme, host)
}
