// Package server is the HTTP decode service: classify, decode and archive
// card dumps posted as canonical JSON.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/farectl/internal/card"
	"github.com/danmuck/farectl/internal/formats"
	"github.com/danmuck/farectl/internal/observability"
	"github.com/danmuck/farectl/internal/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	version = "0.1.0"

	// MaxBodyBytes bounds a posted dump. Real cards hold a few KiB.
	MaxBodyBytes = 1 << 20
)

var errUnrecognized = errors.New("unrecognized card")

type Server struct {
	ID       string
	Addr     string
	Appeared time.Time
	Formats  *formats.Registry
	// Store is optional; archive routes answer 503 without one.
	Store *store.Store

	router *gin.Engine
}

func New(id, addr string, corsOrigins []string, registry *formats.Registry, st *store.Store) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	return &Server{
		ID:       id,
		Addr:     addr,
		Appeared: time.Now(),
		Formats:  registry,
		Store:    st,
		router:   r,
	}
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) RegisterRoutes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/formats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"formats": s.Formats.List()})
	})

	r.POST("/cards/identify", func(c *gin.Context) {
		crd, ok := s.bindCard(c)
		if !ok {
			return
		}
		s.identify(c, crd)
	})

	r.POST("/cards/decode", func(c *gin.Context) {
		crd, ok := s.bindCard(c)
		if !ok {
			return
		}
		s.decode(c, crd)
	})

	r.POST("/cards", func(c *gin.Context) {
		if !s.requireStore(c) {
			return
		}
		crd, ok := s.bindCard(c)
		if !ok {
			return
		}
		id, err := s.Store.Put(crd)
		if err != nil {
			log.Error().Err(err).Msg("server: archive failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		log.Info().Str("cid", id.String()).Hex("tag_id", crd.TagID()).Msg("server: card archived")
		c.JSON(http.StatusCreated, gin.H{"cid": id.String()})
	})

	r.GET("/cards", func(c *gin.Context) {
		if !s.requireStore(c) {
			return
		}
		ids, err := s.Store.List()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			out = append(out, id.String())
		}
		c.JSON(http.StatusOK, gin.H{"cards": out})
	})

	r.GET("/cards/:cid", func(c *gin.Context) {
		if !s.requireStore(c) {
			return
		}
		id, err := store.ParseCID(c.Param("cid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		data, err := s.Store.GetBytes(id)
		if err != nil {
			c.JSON(storeStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json", data)
	})

	r.GET("/cards/:cid/decode", func(c *gin.Context) {
		if !s.requireStore(c) {
			return
		}
		id, err := store.ParseCID(c.Param("cid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		crd, err := s.Store.Get(id)
		if err != nil {
			c.JSON(storeStatus(err), gin.H{"error": err.Error()})
			return
		}
		s.decode(c, crd)
	})
}

func (s *Server) Serve() error {
	s.RegisterRoutes()
	log.Info().Str("addr", s.Addr).Int("formats", len(s.Formats.List())).Msg("server: listening")
	return s.router.Run(s.Addr)
}

func (s *Server) identify(c *gin.Context, crd *card.Card) {
	id, ok := s.Formats.Identify(crd)
	observability.RecordClassification(id.Format)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errUnrecognized.Error()})
		return
	}
	c.JSON(http.StatusOK, id)
}

func (s *Server) decode(c *gin.Context, crd *card.Card) {
	res, ok := s.Formats.Decode(crd)
	observability.RecordClassification(res.Format)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errUnrecognized.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) bindCard(c *gin.Context) (*card.Card, bool) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
	crd, err := card.Decode(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return crd, true
}

func (s *Server) requireStore(c *gin.Context) bool {
	if s.Store != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "archive not configured"})
	return false
}

func storeStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidCID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
