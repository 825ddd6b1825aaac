package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"stream-operators/src/analysis"
	"stream-operators/src/logger"
	"stream-operators/src/metric"
	"stream-operators/src/models"
	"stream-operators/src/utils"

	"github.com/gin-gonic/gin"
)

// OperatorLister reports the operators currently registered.
type OperatorLister interface {
	List() []models.MOperatorStatus
}

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Memory    *utils.MemoryManager
	Operators OperatorLister
	Metrics   *metric.Metrics
	engine    *gin.Engine

	// WebSocket clients
	clients    map[*Client]struct{}
	clientsMu  sync.RWMutex
	broadcast  chan models.MEmission
	register   chan *Client
	unregister chan *Client
	requests   chan clientRequest
	done       chan struct{}
	stopOnce   sync.Once

	lastUpdate int64
	stateMutex sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(cfg *models.MConfig, log *logger.Logger, memory *utils.MemoryManager, operators OperatorLister, metrics *metric.Metrics) *FastAPIServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.NewLogger(cfg, "FastAPIServer")
	}
	if memory == nil {
		memory = utils.NewMemoryManager(0, utils.DefaultEmissionsPerSymbol)
	}

	s := &FastAPIServer{
		Config:    cfg,
		Logger:    log,
		Memory:    memory,
		Operators: operators,
		Metrics:   metrics,
		engine:    gin.New(),
		clients:   make(map[*Client]struct{}),
		// buffered so operators never block on the hub
		broadcast:  make(chan models.MEmission, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		requests:   make(chan clientRequest),
		done:       make(chan struct{}),
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	go s.handleWebsockets()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/operators", s.getOperators)
	s.engine.GET("/api/emissions", s.getLatestEmissions)
	s.engine.GET("/api/emissions/:symbol", s.getEmissions)
	s.engine.GET("/api/emissions/:symbol/windows", s.getEmissionWindows)
	s.engine.GET("/metrics", gin.WrapH(s.Metrics.Handler()))

	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for tests.
func (s *FastAPIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *FastAPIServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	srv := &http.Server{Addr: addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Stop()
	s.Logger.Info("Server stopped")
	return err
}

// -----------------------------------------------------------------------------

// Stop ends the hub loop, disconnects every websocket client and drops the
// buffered emissions.
func (s *FastAPIServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.Memory.Cleanup()
	})
}

// -----------------------------------------------------------------------------
// IEmitter Implementation
// -----------------------------------------------------------------------------

// Emit stores the emission and queues it for websocket clients. When the
// queue is full the broadcast is dropped; the REST snapshot still has it.
func (s *FastAPIServer) Emit(e models.MEmission) {
	s.Memory.Add(e)

	s.stateMutex.Lock()
	s.lastUpdate = time.Now().UnixMilli()
	s.stateMutex.Unlock()

	select {
	case s.broadcast <- e:
	case <-s.done:
	default:
		s.Logger.Debug("Broadcast queue full, dropping emission for %s", e.Symbol)
	}
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	s.clientsMu.RLock()
	connections := len(s.clients)
	s.clientsMu.RUnlock()

	s.stateMutex.RLock()
	timestamp := s.lastUpdate
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": timestamp,
		"symbols":       s.Memory.SymbolCount(),
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getOperators(c *gin.Context) {
	operators := []models.MOperatorStatus{}
	if s.Operators != nil {
		operators = s.Operators.List()
	}
	c.JSON(http.StatusOK, gin.H{"operators": operators})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getLatestEmissions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"emissions": sortEmissions(s.Memory.Snapshot())})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getEmissions(c *gin.Context) {
	symbol := strings.TrimSpace(c.Param("symbol"))
	limit, err := parseLimit(c.Query("limit"), s.Memory.MaxDataPoints)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	emissions := s.Memory.Latest(symbol, limit)
	if operatorID := c.Query("operator"); operatorID != "" {
		emissions = filterByOperator(emissions, operatorID)
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":    symbol,
		"emissions": emissions,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getEmissionWindows(c *gin.Context) {
	symbol := strings.TrimSpace(c.Param("symbol"))
	seconds, err := parseLimit(c.DefaultQuery("seconds", "60"), 86400)
	if err != nil || seconds == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seconds must be a positive integer"})
		return
	}

	emissions := s.Memory.Latest(symbol, s.Memory.MaxDataPoints)
	if operatorID := c.Query("operator"); operatorID != "" {
		emissions = filterByOperator(emissions, operatorID)
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":  symbol,
		"seconds": seconds,
		"windows": analysis.SummarizeEmissions(emissions, int64(seconds)),
	})
}
