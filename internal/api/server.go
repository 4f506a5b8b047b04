// Package api exposes probe history over HTTP for chart frontends and
// export downloads.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ghalamif/ProbeFlow/internal/chart"
	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/export"
	"github.com/ghalamif/ProbeFlow/internal/registry"
	"github.com/ghalamif/ProbeFlow/internal/series"
	"github.com/ghalamif/ProbeFlow/internal/timeline"
)

// Source is the read side of the probe registry.
type Source interface {
	Probes() []registry.Summary
	Snapshot(serial uint32) (domain.ProbeIdentity, domain.History, error)
}

type Options struct {
	AppVersion string
	// Unit is used when a request does not pass ?unit=.
	Unit domain.TemperatureUnit
	Now  func() time.Time
}

type Server struct {
	src    Source
	opts   Options
	router *gin.Engine
}

func NewServer(src Source, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	router := gin.Default()

	s := &Server{src: src, opts: opts, router: router}

	api := router.Group("/api")
	{
		api.GET("/probes", s.handleProbes)
		api.GET("/probes/:serial/sessions", s.handleSessions)
		api.GET("/probes/:serial/series", s.handleSeries)
		api.GET("/probes/:serial/chart.png", s.handleChart)
		api.GET("/probes/:serial/export", s.handleExport)
	}

	return s
}

// Handler returns the router for use in an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleProbes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"probes": s.src.Probes()})
}

func (s *Server) handleSessions(c *gin.Context) {
	_, h, ok := s.snapshot(c)
	if !ok {
		return
	}
	out := make([]domain.SessionSummary, len(h.Sessions))
	for i, sess := range h.Sessions {
		out[i] = domain.Summarize(sess)
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions":   out,
		"has_anchor": timeline.New(h).HasAnchor(),
	})
}

func (s *Server) handleSeries(c *gin.Context) {
	unit, ok := s.unit(c)
	if !ok {
		return
	}
	_, h, ok := s.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, series.Build(h, unit))
}

func (s *Server) handleChart(c *gin.Context) {
	unit, ok := s.unit(c)
	if !ok {
		return
	}
	width, _ := strconv.Atoi(c.DefaultQuery("width", "0"))
	height, _ := strconv.Atoi(c.DefaultQuery("height", "0"))

	id, h, ok := s.snapshot(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	err := chart.Render(&buf, series.Build(h, unit), chart.Options{
		Title:  "Probe " + id.SerialHex(),
		Width:  width,
		Height: height,
	})
	if errors.Is(err, chart.ErrNoData) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) handleExport(c *gin.Context) {
	mode, err := export.ParseMode(c.Query("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, h, ok := s.snapshot(c)
	if !ok {
		return
	}

	meta := export.Metadata{Probe: id, ExportedAt: export.Stamp(s.opts.Now()), AppVersion: s.opts.AppVersion}
	r := timeline.New(h)

	var doc *export.Document
	if mode == export.Simple {
		sid, perr := strconv.ParseUint(c.Query("session"), 10, 32)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session query parameter is required for simple exports"})
			return
		}
		doc, err = export.NewSimple(r, uint32(sid), meta)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
	} else {
		doc = export.NewCombined(r, meta)
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename()))
	c.Status(http.StatusOK)
	if _, err := doc.WriteTo(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

func (s *Server) snapshot(c *gin.Context) (domain.ProbeIdentity, domain.History, bool) {
	serial, err := strconv.ParseUint(c.Param("serial"), 16, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid serial %q", c.Param("serial"))})
		return domain.ProbeIdentity{}, domain.History{}, false
	}
	id, h, err := s.src.Snapshot(uint32(serial))
	if errors.Is(err, domain.ErrUnknownProbe) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return domain.ProbeIdentity{}, domain.History{}, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return domain.ProbeIdentity{}, domain.History{}, false
	}
	return id, h, true
}

func (s *Server) unit(c *gin.Context) (domain.TemperatureUnit, bool) {
	raw, ok := c.GetQuery("unit")
	if !ok {
		return s.opts.Unit, true
	}
	u, err := domain.ParseUnit(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, false
	}
	return u, true
}
