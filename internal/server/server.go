package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/Aryan-Baglane/RecyclerAiChatBot/internal/models"
)

// Scanner produces a sustainability report for one scan request
type Scanner interface {
	Scan(ctx context.Context, req models.ScanRequest) (*models.ProductDetails, error)
}

// Options tunes the HTTP boundary
type Options struct {
	Debug          bool
	RequestTimeout time.Duration
	MaxUploadBytes int64
	AllowedOrigins []string
}

type Server struct {
	scanner        Scanner
	router         *gin.Engine
	upgrader       websocket.Upgrader
	clients        sync.Map // client id -> *websocket.Conn
	debug          bool
	requestTimeout time.Duration
	maxUploadBytes int64
}

func New(scanner Scanner, opts Options) *Server {
	if opts.Debug {
		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
		log.Println("Debug logging enabled")
	} else if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 90 * time.Second
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}

	s := &Server{
		scanner:        scanner,
		debug:          opts.Debug,
		requestTimeout: opts.RequestTimeout,
		maxUploadBytes: opts.MaxUploadBytes,
	}

	allowAll := len(opts.AllowedOrigins) == 0
	for _, origin := range opts.AllowedOrigins {
		if origin == "*" {
			allowAll = true
		}
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range opts.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	corsConfig := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", requestTimeoutHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if allowAll {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.AllowedOrigins
	}

	r := gin.New()
	r.Use(gin.Recovery(), gin.Logger(), cors.New(corsConfig))
	r.MaxMultipartMemory = s.maxUploadBytes

	r.GET("/health", s.handleHealth)
	r.GET("/ws", s.handleWebSocket)
	r.POST("/api/scan", s.handleScan)

	s.router = r
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on port until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting server on port %s\n", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down server...")
		s.closeClients()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}
