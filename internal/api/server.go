package api

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quakewatch/quakewatch/internal/dashboard"
	"github.com/quakewatch/quakewatch/internal/imagegen"
	"github.com/quakewatch/quakewatch/internal/maprender"
	"github.com/quakewatch/quakewatch/internal/reqlog"
	"github.com/quakewatch/quakewatch/internal/store"
)

type Server struct {
	state   *dashboard.State
	layer   *maprender.Layer
	journal *store.Journal // may be nil
	addr    string
	tmpl    *template.Template
	ogCache *imagegen.Cache
}

// NewServer builds the HTTP surface. journal may be nil when journaling is
// disabled.
func NewServer(state *dashboard.State, layer *maprender.Layer, journal *store.Journal, addr string) *Server {
	return &Server{
		state:   state,
		layer:   layer,
		journal: journal,
		addr:    addr,
		tmpl:    newTemplates(),
		ogCache: imagegen.NewCache(10 * time.Minute),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/og-image.png", s.handleOGImage)
	mux.HandleFunc("/api/view", s.handleAPIView)
	mux.HandleFunc("/api/markers", s.handleAPIMarkers)
	mux.HandleFunc("/api/refresh", s.handleAPIRefresh)
	mux.HandleFunc("/api/probe", s.handleAPIProbe)
	mux.HandleFunc("/api/status", s.handleAPIStatus)
	mux.Handle("/metrics", promhttp.Handler())
	return reqlog.Wrap(mux)
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
