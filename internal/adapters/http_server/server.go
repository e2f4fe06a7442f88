package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const requestTimeout = 15 * time.Second

type Server struct{ mux *chi.Mux }

type options struct{ trustProxy bool }

type Option func(*options)

// TrustProxyHeaders makes RemoteAddr follow True-Client-IP, X-Real-IP and X-Forwarded-For.
// Enable it only behind a proxy that overwrites those headers; rate limiting keys on RemoteAddr.
func TrustProxyHeaders() Option { return func(o *options) { o.trustProxy = true } }

func New(opts ...Option) *Server {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	m := chi.NewRouter()

	// middlewares must be registered before any route
	if o.trustProxy {
		m.Use(chimw.RealIP)
	}
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(Timeout(requestTimeout))
	m.Use(Metrics)
	m.Use(Logger(log.Logger))

	m.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	m.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" is not supported here")
	})

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches an extra handler such as /metrics or the MCP endpoint.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
