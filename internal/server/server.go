// Package server exposes sessions and the move pipeline over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/board"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/domain"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/move"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/obslog"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/render"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/session"
	"github.com/misaelnieto/itm-2025-soa-u5/pkg/ajedrezdto"
)

// APIPrefix is where the session routes live.
const APIPrefix = "/api/ajedrez"

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 64 << 10

type Server struct {
	repo      session.Repository
	proc      *move.Processor
	renderer  render.BoardRenderer
	logger    *zap.Logger
	listLimit int
	origins   []string
	router    *mux.Router
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.logger = l } }

func WithRenderer(r render.BoardRenderer) Option { return func(s *Server) { s.renderer = r } }

// WithListLimit sets the page size used when ?limit is absent.
func WithListLimit(n int) Option { return func(s *Server) { s.listLimit = n } }

// WithOriginPatterns allows browser origins besides the server's own host
// on the websocket relay. Patterns follow path.Match against the origin host.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) { s.origins = append(s.origins, patterns...) }
}

func New(repo session.Repository, proc *move.Processor, opts ...Option) *Server {
	s := &Server{
		repo:      repo,
		proc:      proc,
		listLimit: session.DefaultListLimit,
		router:    mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = obslog.Or(s.logger)
	if s.renderer == nil {
		s.renderer = render.NewRenderer(64)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.requestID, s.accessLog)

	api := s.router.PathPrefix(APIPrefix).Subrouter()
	api.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id:[0-9]+}", s.handleInspect).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id:[0-9]+}/moves", s.handleMove).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id:[0-9]+}/board.png", s.handleBoardPNG).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id:[0-9]+}/ws", s.handleEcho)

	s.router.HandleFunc("/echo", s.handleEcho)
	s.router.HandleFunc("/openapi.json", s.handleOpenAPI).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ajedrezdto.APIError{Code: code, Message: message, Retryable: status >= 500})
}

// decodeBody reads at most MaxBodyBytes of JSON into dst and answers the
// request itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		respondError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func sessionID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid session id %q", raw)
	}
	return id, nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req ajedrezdto.CreateSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := s.repo.Create(r.Context(), req.WhitePlayer, req.BlackPlayer)
	if err != nil {
		s.logger.Error("session_create", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "database_error", err.Error())
		return
	}
	s.logger.Info("session_create",
		zap.Int64("session_id", sess.ID),
		zap.Int64("white_player", sess.WhitePlayer),
		zap.Int64("black_player", sess.BlackPlayer),
	)
	respondJSON(w, http.StatusCreated, SessionDTO(sess))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := s.listLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = n
	}
	list, err := s.repo.List(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database_error", err.Error())
		return
	}
	out := ajedrezdto.SessionList{Sessions: make([]ajedrezdto.Session, 0, len(list))}
	for _, sess := range list {
		out.Sessions = append(out.Sessions, SessionDTO(sess))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) inspect(w http.ResponseWriter, r *http.Request) (*move.SessionView, bool) {
	id, err := sessionID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return nil, false
	}
	view, err := s.proc.Inspect(r.Context(), id)
	switch {
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
		return nil, false
	case errors.Is(err, move.ErrCorruptBoard):
		respondError(w, http.StatusInternalServerError, "corrupt_board", err.Error())
		return nil, false
	case err != nil:
		respondError(w, http.StatusInternalServerError, "database_error", err.Error())
		return nil, false
	}
	return view, true
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	view, ok := s.inspect(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, ViewDTO(view))
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	view, ok := s.inspect(w, r)
	if !ok {
		return
	}
	pos, ok := board.Position(view.Board)
	if !ok {
		respondError(w, http.StatusNotImplemented, "unsupported_engine", "board engine cannot be rendered")
		return
	}
	opts := render.Options{
		Flip:    strings.EqualFold(r.URL.Query().Get("side"), "black"),
		Caption: fmt.Sprintf("Session %d - %s to move", view.Session.ID, view.Board.ActiveColor()),
	}
	img, err := s.renderer.RenderPNG(r.Context(), pos, opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "render_error", err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	var req ajedrezdto.MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp := s.proc.Process(r.Context(), domain.MoveRequest{SessionID: id, PlayerID: req.PlayerID, Move: req.Move})
	respondJSON(w, StatusFor(resp.Outcome), ajedrezdto.MoveResponse{
		SessionID:   id,
		Result:      resp.Outcome.String(),
		Description: resp.Description,
	})
}

// StatusFor maps an outcome to its HTTP status.
func StatusFor(o domain.Outcome) int {
	switch o {
	case domain.OutcomeValidMove:
		return http.StatusOK
	case domain.OutcomeSessionDoesNotExist:
		return http.StatusNotFound
	case domain.OutcomeUserNotInSession:
		return http.StatusForbidden
	case domain.OutcomeInvalidMove:
		return http.StatusUnprocessableEntity
	case domain.OutcomeSessionNotPlayable, domain.OutcomeConcurrentModification:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func SessionDTO(s *domain.Session) ajedrezdto.Session {
	return ajedrezdto.Session{
		ID:          s.ID,
		WhitePlayer: s.WhitePlayer,
		BlackPlayer: s.BlackPlayer,
		State:       s.State.String(),
		FEN:         s.FEN,
		PGN:         s.PGN,
		Version:     s.Version,
		Created:     s.Created,
		Updated:     s.Updated,
	}
}

func ViewDTO(v *move.SessionView) ajedrezdto.SessionView {
	return ajedrezdto.SessionView{
		Session:     SessionDTO(v.Session),
		ActiveColor: v.Board.ActiveColor().String(),
		FullMove:    v.Board.FullMoveNumber(),
		Board:       v.Board.Draw(),
	}
}
