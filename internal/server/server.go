// Package server is the HTTP execution service that editing sessions
// dispatch runs to.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/zjrosen/polypad/internal/log"
)

// DefaultAddr matches execution.DefaultEndpoint.
const DefaultAddr = "127.0.0.1:8000"

// Config configures the service.
type Config struct {
	// Addr is the listen address. Port 0 picks a free port.
	Addr string
	// AllowedOrigins lists browser origins permitted by CORS. Empty allows
	// any origin.
	AllowedOrigins []string
	Handler        HandlerConfig
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Server owns the listener and the HTTP server.
type Server struct {
	server   *http.Server
	listener net.Listener
	port     int
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(cfg Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Content-Type", "X-Request-ID", "traceparent", "tracestate"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	router.Use(cors.New(corsCfg))
	router.Use(RequestIDMiddleware())
	router.Use(TracingMiddleware(nil))
	router.Use(LoggingMiddleware())

	NewHandler(cfg.Handler).Routes(router)
	return router
}

// NewServer binds the listener so Port is valid before Start.
func NewServer(cfg Config) (*Server, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	port := 0
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}

	return &Server{
		listener: listener,
		port:     port,
		server: &http.Server{
			Handler:           NewRouter(cfg),
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
		},
	}, nil
}

// Start serves until Stop. It returns http.ErrServerClosed after a clean
// shutdown.
func (s *Server) Start() error {
	log.Info(log.CatServer, "starting execution service", "addr", s.listener.Addr().String())
	return s.server.Serve(s.listener)
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	log.Info(log.CatServer, "stopping execution service")
	return s.server.Shutdown(ctx)
}

// Port returns the bound port.
func (s *Server) Port() int {
	return s.port
}

// URL returns the base URL of the bound listener.
func (s *Server) URL() string {
	return "http://" + s.listener.Addr().String()
}
