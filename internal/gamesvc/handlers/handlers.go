package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/avvvet/npat-services/internal/comm"
	"github.com/avvvet/npat-services/internal/gamesvc/categories"
	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/avvvet/npat-services/internal/gamesvc/service"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 320

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// Archive is the read side of the finished-game archive.
type Archive interface {
	Recent(ctx context.Context, player string, limit int64) ([]comm.GameSummary, error)
}

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	rooms     *service.RoomService
	matches   *service.MatchService
	wallets   *service.WalletService
	archive   Archive
	joinURL   string
	port      string
}

func NewHandler(rooms *service.RoomService, matches *service.MatchService, wallets *service.WalletService,
	archive Archive, joinURL, port string) *Handler {
	return &Handler{
		rooms:   rooms,
		matches: matches,
		wallets: wallets,
		archive: archive,
		joinURL: joinURL,
		port:    port,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("unable to write response: %s", err)
	}
}

func (h *Handler) ok(w http.ResponseWriter, data interface{}) {
	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: data})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := service.ErrorCode(err)
	status := http.StatusInternalServerError
	switch code {
	case service.CodeNotFound:
		status = http.StatusNotFound
	case service.CodeConflict:
		status = http.StatusConflict
	case service.CodeInvalid:
		status = http.StatusBadRequest
	default:
		log.Errorf("Error [%s %s] %s", r.Method, r.URL.Path, err)
	}
	h.CreateResponse(w, Response{Message: code, Code: status, Error: service.ErrorMessage(err)})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.ok(w, map[string]string{"service": "game", "port": h.port})
}

func (h *Handler) CategoriesHandler(w http.ResponseWriter, r *http.Request) {
	h.ok(w, map[string]interface{}{
		"categories": models.Categories,
		"examples":   categories.Examples(),
	})
}

func (h *Handler) RoomHandler(w http.ResponseWriter, r *http.Request) {
	view, err := h.rooms.GetRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, view)
}

func (h *Handler) RoomResultsHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.rooms.FinalResults(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, res)
}

// RoomQRHandler renders the join link of a room code as a PNG.
func (h *Handler) RoomQRHandler(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	if !roomCodePattern.MatchString(code) {
		h.CreateResponse(w, Response{Message: service.CodeInvalid, Code: http.StatusBadRequest, Error: "invalid room code"})
		return
	}

	png, err := qrcode.Encode(JoinLink(h.joinURL, code), qrcode.Medium, qrSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(png)
}

func (h *Handler) MatchHandler(w http.ResponseWriter, r *http.Request) {
	view, err := h.matches.GetMatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, view)
}

func (h *Handler) WalletHandler(w http.ResponseWriter, r *http.Request) {
	view, err := h.wallets.Statement(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, view)
}

// HistoryHandler lists recent matches and, when the archive is
// configured, archived summaries of every finished game.
func (h *Handler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	matches, err := h.matches.History(r.Context(), name)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := map[string]interface{}{"matches": matches}
	if h.archive != nil {
		archived, err := h.archive.Recent(r.Context(), strings.TrimSpace(name), 20)
		if err != nil {
			log.Warnf("archive lookup for %s failed: %s", name, err)
		} else {
			out["archived"] = archived
		}
	}
	h.ok(w, out)
}

func JoinLink(base, code string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "code=" + code
}
