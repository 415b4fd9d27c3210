package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"autodj/config"
	"autodj/core/session"
	"autodj/logger"
	"autodj/model"
	"autodj/repository"
	"autodj/storage"

	"github.com/gorilla/mux"
)

// Handler carries the dependencies of the HTTP endpoints.
type Handler struct {
	cfg      *config.Config
	svc      session.Service
	hub      *session.Hub
	tracks   repository.TrackRepository
	sessions repository.SessionRepository
	mixes    *repository.MixRepository
}

// NewHandler creates the endpoint handler set.
func NewHandler(
	cfg *config.Config,
	svc session.Service,
	hub *session.Hub,
	tracks repository.TrackRepository,
	sessions repository.SessionRepository,
	mixes *repository.MixRepository,
) *Handler {
	return &Handler{
		cfg:      cfg,
		svc:      svc,
		hub:      hub,
		tracks:   tracks,
		sessions: sessions,
		mixes:    mixes,
	}
}

// 点歌表单页，手机扫码后打开
var formTemplate = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>AI Music Mixer</title>
    <link href="https://fonts.googleapis.com/css2?family=Poppins:wght@400;600;700&display=swap" rel="stylesheet">
    <style>
        body {
            font-family: 'Poppins', sans-serif;
            background-image: url('/background.png'), linear-gradient(135deg, #1a1a2e, #16213e);
            background-size: cover;
            background-position: center;
            background-repeat: no-repeat;
            display: flex;
            justify-content: center;
            align-items: center;
            height: 100vh;
            margin: 0;
            color: #ffffff;
            text-shadow: 2px 2px 4px rgba(0,0,0,0.7);
        }

        .container {
            background: rgba(0, 0, 0, 0.5);
            padding: 30px;
            border-radius: 20px;
            box-shadow: 0 12px 24px rgba(0,0,0,0.5);
            backdrop-filter: blur(8px);
            max-width: 400px;
            width: 100%;
            text-align: center;
        }

        input[type="text"] {
            width: 100%;
            padding: 10px;
            margin-top: 15px;
            border-radius: 10px;
            border: none;
            font-size: 16px;
            box-sizing: border-box;
            box-shadow: inset 0 2px 5px rgba(0,0,0,0.3);
        }

        button {
            background-color: #ff4081;
            color: white;
            padding: 10px 20px;
            margin-top: 15px;
            border: none;
            border-radius: 10px;
            cursor: pointer;
            font-size: 16px;
            transition: background-color 0.3s ease, transform 0.2s ease;
        }

        button:hover {
            background-color: #e91e63;
            transform: scale(1.05);
        }

        .session-info {
            margin-top: 20px;
            font-size: 14px;
        }

        img {
            margin-top: 15px;
            width: 150px;
            height: 150px;
            border-radius: 10px;
            box-shadow: 0 4px 8px rgba(0,0,0,0.4);
        }

        h2 {
            font-size: 24px;
            font-weight: 700;
            margin-bottom: 10px;
        }

        h3 {
            color: #ff5252;
            font-size: 18px;
            font-weight: 600;
        }
    </style>
</head>
<body>
    <div class="container">
        {{if .Valid}}
            <h2>🎧 AI Music Mixing 🎶</h2>
            <form method="POST">
                <input type="text" name="query" placeholder="Enter song name" required />
                <button type="submit">Mix Now</button>
            </form>
            <div class="session-info">
                <p>⏳ Session ends in <strong>{{.Remaining}}</strong> seconds.</p>
                <p>📱 Scan QR code:<br><img src="/qr/{{.Token}}" alt="QR Code"></p>
            </div>
        {{else}}
            <h3>🚫 Session ended. Wait for the next session.</h3>
        {{end}}
    </div>
</body>
</html>
`))

type formData struct {
	Token     string
	Valid     bool
	Remaining int
}

// KioskHandler serves the landing page.
func (h *Handler) KioskHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "Welcome to the Integrated Music Mixing Pipeline!")
}

// BackgroundHandler serves the optional kiosk backdrop image from the
// working directory. Missing file just 404s and the page falls back to CSS.
func (h *Handler) BackgroundHandler(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, "background.png")
}

// RequestFormHandler renders the song request form for a session token.
func (h *Handler) RequestFormHandler(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	status, err := h.svc.Status(r.Context())
	if err != nil {
		http.Error(w, "service unavailable", http.StatusInternalServerError)
		return
	}

	data := formData{Token: token}
	if status.Phase == model.PhaseOpen && status.Token == token {
		data.Valid = true
		data.Remaining = status.RemainingSec
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := formTemplate.Execute(w, data); err != nil {
		logger.Warn("failed to render request form", logger.ErrorField(err))
	}
}

// SubmitRequestHandler tallies one song request.
func (h *Handler) SubmitRequestHandler(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	query := r.FormValue("query")

	err := h.svc.Submit(r.Context(), token, query)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	switch {
	case err == nil:
		fmt.Fprintf(w, "✅ Submitted: %s", query)
	case errors.Is(err, session.ErrEmptyQuery):
		fmt.Fprint(w, "❌ Empty query!")
	case errors.Is(err, session.ErrSessionExpired):
		fmt.Fprint(w, "❌ Session has ended. Please wait for the next session.")
	default:
		logger.Error("failed to submit request", logger.ErrorField(err))
		http.Error(w, "service unavailable", http.StatusInternalServerError)
	}
}

// QRHandler serves the QR PNG for a session token from local disk.
func (h *Handler) QRHandler(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	// mux不会放行带路径分隔符的token，这里再兜一层
	name := "qr_" + filepath.Base(token) + ".png"
	http.ServeFile(w, r, filepath.Join(h.cfg.QRDir, name))
}

// SessionStatusHandler returns the live session state as JSON.
func (h *Handler) SessionStatusHandler(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Status(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to read session state")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// RecentSessionsHandler lists archived request windows.
func (h *Handler) RecentSessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.GetRecentSessions(limitParam(r, 20))
	if err != nil {
		logger.Error("failed to list sessions", logger.ErrorField(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// RecentTracksHandler lists recently downloaded tracks.
func (h *Handler) RecentTracksHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.tracks.GetRecentTracks(limitParam(r, 20))
	if err != nil {
		logger.Error("failed to list tracks", logger.ErrorField(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to list tracks")
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

// RecentMixesHandler lists finished mixes.
func (h *Handler) RecentMixesHandler(w http.ResponseWriter, r *http.Request) {
	mixes, err := h.mixes.Recent(limitParam(r, 20))
	if err != nil {
		logger.Error("failed to list mixes", logger.ErrorField(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to list mixes")
		return
	}
	writeJSON(w, http.StatusOK, mixes)
}

// MixObjectHandler streams a finished mix out of MinIO.
func (h *Handler) MixObjectHandler(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(mux.Vars(r)["object"])

	obj, err := storage.OpenMix(r.Context(), "mixes/"+name)
	if err != nil {
		http.Error(w, "mix not found", http.StatusNotFound)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=31536000") // 混音不可变，缓存一年

	if _, err := io.Copy(w, obj); err != nil {
		logger.Warn("error streaming mix",
			logger.String("object", name),
			logger.ErrorField(err))
	}
}

func limitParam(r *http.Request, fallback int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			return n
		}
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", logger.ErrorField(err))
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error":     msg,
		"timestamp": time.Now().UnixMilli(),
	})
}
