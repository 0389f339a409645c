package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"learn-quiz-service/internal/app"
	"learn-quiz-service/internal/auth"
	"learn-quiz-service/internal/domain"
)

const maxBodyBytes = 1 << 20

type RouterConfig struct {
	AllowedOrigins []string
	HistoryLimit   int
}

type Handler struct {
	service      *app.QuizService
	historyLimit int
}

func NewRouter(service *app.QuizService, hub *app.ActivityHub, authSvc *auth.Service, cfg RouterConfig) http.Handler {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	h := &Handler{service: service, historyLimit: cfg.HistoryLimit}
	ws := NewWSHandler(service, hub, cfg.HistoryLimit)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.Middleware(authSvc, writeError))
		pr.Get("/ws/activity", ws.ServeWS)
		pr.Group(func(api chi.Router) {
			api.Use(middleware.Timeout(30 * time.Second))
			api.Get("/quiz/{id}", h.getQuiz)
			api.Post("/quiz/{id}/submit", h.submit)
			api.Get("/attempts", h.attempts)
		})
	})
	return r
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	q := r.URL.Query()
	issued, err := h.service.GetQuiz(r.Context(), chi.URLParam(r, "id"), id.UserID, q.Get("lang"), domain.ParseMode(q.Get("mode")))
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, issued)
}

type submitRequest struct {
	Token   string                    `json:"token"`
	Answers []domain.AnswerSubmission `json:"answers"`
	Lang    string                    `json:"lang"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidSubmission, err))
		return
	}
	res, err := h.service.Submit(r.Context(), chi.URLParam(r, "id"), id.UserID, req.Token, req.Answers, req.Lang)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *Handler) attempts(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	limit := h.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidSubmission))
			return
		}
		if n < limit {
			limit = n
		}
	}
	history, err := h.service.History(r.Context(), id.UserID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if history == nil {
		history = []domain.Attempt{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"attempts": history})
}
