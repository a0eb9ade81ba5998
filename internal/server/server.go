package web

import (
	"context"
	"net/http"
	"time"

	"github.com/kashifkhan1020/KamiNewMods/internal/admin"
	"github.com/kashifkhan1020/KamiNewMods/internal/bot"
	"github.com/kashifkhan1020/KamiNewMods/internal/intake"
	"github.com/kashifkhan1020/KamiNewMods/internal/metrics"
	"github.com/kashifkhan1020/KamiNewMods/internal/queue"
	"github.com/kashifkhan1020/KamiNewMods/internal/resolve"
	"github.com/kashifkhan1020/KamiNewMods/internal/store"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options wires the server to the rest of the service. Queue, Bot and
// Gatherer are optional; their routes answer 503 or 404 when unset.
type Options struct {
	Store    store.Store
	Intake   *intake.Service
	Resolver *resolve.Resolver
	Gate     *admin.Gate
	Queue    queue.Queue
	Bot      *bot.Bot
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger

	// WebhookSecret guards /bot/webhook when non-empty.
	WebhookSecret string

	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

type Server struct {
	store    store.Store
	intake   *intake.Service
	resolver *resolve.Resolver
	gate     *admin.Gate
	queue    queue.Queue
	bot      *bot.Bot
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	router   *mux.Router
	server   *http.Server
	flash    *flashes

	webhookSecret string
	maxUpload     int64
	readTimeout   time.Duration
	writeTimeout  time.Duration
}

func NewServer(opts Options) *Server {
	s := &Server{
		store:         opts.Store,
		intake:        opts.Intake,
		resolver:      opts.Resolver,
		gate:          opts.Gate,
		queue:         opts.Queue,
		bot:           opts.Bot,
		metrics:       opts.Metrics,
		gatherer:      opts.Gatherer,
		logger:        opts.Logger,
		router:        mux.NewRouter(),
		flash:         newFlashes(),
		webhookSecret: opts.WebhookSecret,
		maxUpload:     opts.MaxUploadBytes,
		readTimeout:   opts.ReadTimeout,
		writeTimeout:  opts.WriteTimeout,
	}
	if s.maxUpload <= 0 {
		s.maxUpload = 100 << 20
	}
	if s.readTimeout <= 0 {
		s.readTimeout = 15 * time.Second
	}
	if s.writeTimeout <= 0 {
		s.writeTimeout = 60 * time.Second
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	// Resolution and dashboard
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
	s.router.HandleFunc("/add", s.handleAdd).Methods("POST")
	s.router.HandleFunc("/view/{kind}/{key}", s.handleView).Methods("GET")
	s.router.HandleFunc("/blob/{id}/{index:[0-9]+}", s.handleBlob).Methods("GET")
	s.router.HandleFunc("/upload", s.handleUpload).Methods("POST")

	// JSON API
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/items", s.handleListItems).Methods("GET")
	api.HandleFunc("/items/{kind}/{key}", s.handleGetItem).Methods("GET")
	api.HandleFunc("/items/{kind}", s.handleCreateItem).Methods("POST")
	api.HandleFunc("/items/{kind}/{id}", s.handleDeleteItem).Methods("DELETE")
	api.HandleFunc("/import", s.handleImport).Methods("POST")

	s.router.HandleFunc("/bot/webhook", s.handleWebhook).Methods("POST")
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start launches the HTTP server
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}

	s.logger.Info("Web server listening", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
