package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"

	"nightfall/internal/game"
)

// GameQR serves a PNG QR code of the game's join URL so players can
// scan their way into the lobby.
func (h *Handler) GameQR(w http.ResponseWriter, r *http.Request) {
	identity := getOrCreateSession(w, r)
	gameID := chi.URLParam(r, "id")

	view, err := h.gw.View(r.Context(), identity, gameID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if view.Status != game.StatusWaiting {
		h.respondError(w, fmt.Errorf("game already started: %w", game.ErrPreconditionFailed))
		return
	}

	joinURL := fmt.Sprintf("%s/join?code=%s", h.cfg.Server.PublicURL, view.RoomCode)
	png, err := generateQRCode(joinURL)
	if err != nil {
		h.log.Error("qr generation failed", "game", gameID, "error", err)
		http.Error(w, "could not generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

// generateQRCode renders the URL as a PNG
func generateQRCode(url string) ([]byte, error) {
	qrc, err := qrcode.NewWith(url,
		qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionMedium),
		qrcode.WithEncodingMode(qrcode.EncModeByte),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	// The standard writer only writes files; render through a temp file.
	tmpFile := filepath.Join(os.TempDir(), fmt.Sprintf("qr_%d.png", time.Now().UnixNano()))
	defer os.Remove(tmpFile)

	qw, err := standard.New(tmpFile,
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
		standard.WithQRWidth(8),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create writer: %w", err)
	}
	if err := qrc.Save(qw); err != nil {
		return nil, fmt.Errorf("failed to save QR code: %w", err)
	}

	return os.ReadFile(tmpFile)
}
