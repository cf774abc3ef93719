package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/set-night/interiorchat/internal/config"
	"github.com/set-night/interiorchat/internal/middleware"
	"github.com/set-night/interiorchat/internal/service"
)

// Handler holds all dependencies needed by the HTTP handlers.
type Handler struct {
	cfg            *config.Config
	relay          *service.ChatRelay
	quickQuestions *service.QuickQuestionsService
	sessionService *service.SessionService
	limiter        *middleware.RateLimiter
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Cfg            *config.Config
	Relay          *service.ChatRelay
	QuickQuestions *service.QuickQuestionsService
	SessionService *service.SessionService
	Limiter        *middleware.RateLimiter
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		cfg:            deps.Cfg,
		relay:          deps.Relay,
		quickQuestions: deps.QuickQuestions,
		sessionService: deps.SessionService,
		limiter:        deps.Limiter,
	}
}

// Register registers the API routes on a router.
func (h *Handler) Register(router *mux.Router) {
	limited := func(fn http.HandlerFunc) http.Handler {
		if h.limiter == nil {
			return fn
		}
		return middleware.RateLimit(h.limiter)(fn)
	}

	router.Handle("/api/chat", limited(h.handleChat)).Methods(http.MethodPost)
	router.Handle("/api/chat/stream", limited(h.handleChatStream)).Methods(http.MethodPost)
	router.HandleFunc("/api/quick-questions", h.handleQuickQuestions).Methods(http.MethodGet)
	router.Handle("/api/session", limited(h.handleCreateSession)).Methods(http.MethodPost)
	router.HandleFunc("/api/session/{id}", h.handleSessionHistory).Methods(http.MethodGet)
	router.HandleFunc("/api/session/{id}", h.handleDeleteSession).Methods(http.MethodDelete)
	router.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
}

// Routes builds the complete HTTP handler with middlewares applied.
func (h *Handler) Routes() http.Handler {
	router := mux.NewRouter()
	h.Register(router)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	var isAllowed func(string) bool
	if h.cfg != nil {
		isAllowed = h.cfg.IsAllowedOrigin
	} else {
		isAllowed = func(string) bool { return false }
	}

	var root http.Handler = router
	root = middleware.CORS(isAllowed)(root)
	root = middleware.Logging()(root)
	root = middleware.Recover()(root)
	root = middleware.RequestID()(root)
	return root
}
