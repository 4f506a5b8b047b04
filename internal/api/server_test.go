package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/registry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func seeded(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	start := time.Unix(1700000000, 0)
	fw := "2.1.0"
	events := []*domain.Event{
		{Kind: domain.EventProbeIdentified, ProbeSerial: 0x10AB, FirmwareVersion: &fw},
		{Kind: domain.EventSessionStarted, ProbeSerial: 0x10AB, SessionID: 1, SamplePeriodMs: 1000, StartTime: &start},
		{Kind: domain.EventSessionStarted, ProbeSerial: 0x10AB, SessionID: 2, SamplePeriodMs: 1000},
	}
	for seq := uint32(0); seq < 3; seq++ {
		s, err := domain.NewSample(seq, []float64{0, 10, 20, 30, 40, 50, 60, 70})
		require.NoError(t, err)
		events = append(events, domain.SampleEvent(0x10AB, 1, s, start))
	}
	s, err := domain.NewSample(9, []float64{1, 1, 1, 1, 1, 1, 1, 1})
	require.NoError(t, err)
	events = append(events, domain.SampleEvent(0x10AB, 2, s, start))

	for _, e := range events {
		require.NoError(t, reg.Apply(e))
	}
	return reg
}

func newServer(t *testing.T) *Server {
	return NewServer(seeded(t), Options{
		AppVersion: "1.0.0",
		Now:        func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local) },
	})
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestListProbes(t *testing.T) {
	w := get(newServer(t), "/api/probes")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Probes []struct {
			Serial      string `json:"serial"`
			RecordCount int    `json:"record_count"`
			State       string `json:"state"`
			MinSeq      uint32 `json:"min_seq"`
			MaxSeq      uint32 `json:"max_seq"`
		} `json:"probes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Probes, 1)
	p := body.Probes[0]
	assert.Equal(t, "10AB", p.Serial)
	assert.Equal(t, 4, p.RecordCount)
	assert.Equal(t, "disconnected", p.State)
	assert.Equal(t, uint32(0), p.MinSeq)
	assert.Equal(t, uint32(9), p.MaxSeq)
}

func TestSessions(t *testing.T) {
	w := get(newServer(t), "/api/probes/10ab/sessions")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Sessions  []domain.SessionSummary `json:"sessions"`
		HasAnchor bool                    `json:"has_anchor"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Sessions, 2)
	assert.True(t, body.HasAnchor)
	assert.True(t, body.Sessions[0].Anchorable)
	assert.False(t, body.Sessions[1].Anchorable)
	assert.Equal(t, 1, body.Sessions[1].SampleCount)
}

func TestSeriesInFahrenheit(t *testing.T) {
	w := get(newServer(t), "/api/probes/10AB/series?unit=F")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Unit     string `json:"unit"`
		Channels []struct {
			Label  string `json:"label"`
			Points []struct {
				X float64 `json:"x"`
				Y float64 `json:"y"`
			} `json:"points"`
		} `json:"channels"`
		Skipped []uint32 `json:"skipped_sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "F", body.Unit)
	require.Len(t, body.Channels, domain.ChannelCount)
	assert.Equal(t, "T2", body.Channels[1].Label)
	require.Len(t, body.Channels[1].Points, 3)
	assert.InDelta(t, 50.0, body.Channels[1].Points[0].Y, 1e-9)
	assert.InDelta(t, 1700000002.0, body.Channels[1].Points[2].X, 1e-6)
	assert.Equal(t, []uint32{2}, body.Skipped)
}

func TestCombinedExport(t *testing.T) {
	w := get(newServer(t), "/api/probes/10AB/export")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Probe Data - 10AB - 2024-05-06 07_08_09.csv")

	lines := strings.Split(w.Body.String(), "\n")
	assert.Equal(t, "Probe FW version: 2.1.0", lines[3])
	assert.Equal(t, "Probe HW revision: ??", lines[4])
	assert.Equal(t, "2024-05-06 07:08:09", lines[5])
	assert.Equal(t, "App version: 1.0.0", lines[6])
	// 7 header lines, blank, column header, 4 rows
	require.Len(t, lines, 13)
	assert.Equal(t, "2,1,2,0.00,10.00,20.00,30.00,40.00,50.00,60.00,70.00", lines[11])
	assert.Equal(t, "0,2,9,1.00,1.00,1.00,1.00,1.00,1.00,1.00,1.00", lines[12])
}

func TestSimpleExport(t *testing.T) {
	s := newServer(t)

	w := get(s, "/api/probes/10AB/export?mode=simple&session=1")
	require.Equal(t, http.StatusOK, w.Code)
	lines := strings.Split(w.Body.String(), "\n")
	assert.Equal(t, "SequenceNumber,T1,T2,T3,T4,T5,T6,T7,T8", lines[8])
	assert.Len(t, lines, 12)

	assert.Equal(t, http.StatusBadRequest, get(s, "/api/probes/10AB/export?mode=simple").Code)
	assert.Equal(t, http.StatusNotFound, get(s, "/api/probes/10AB/export?mode=simple&session=5").Code)
	assert.Equal(t, http.StatusBadRequest, get(s, "/api/probes/10AB/export?mode=xml").Code)
}

func TestChart(t *testing.T) {
	w := get(newServer(t), "/api/probes/10AB/chart.png?width=400&height=300")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestErrors(t *testing.T) {
	s := newServer(t)
	assert.Equal(t, http.StatusNotFound, get(s, "/api/probes/BEEF/series").Code)
	assert.Equal(t, http.StatusBadRequest, get(s, "/api/probes/zz/series").Code)
	assert.Equal(t, http.StatusBadRequest, get(s, "/api/probes/10AB/series?unit=K").Code)

	reg := registry.New()
	reg.Register(domain.ProbeIdentity{SerialNumber: 1})
	empty := NewServer(reg, Options{})
	assert.Equal(t, http.StatusNotFound, get(empty, "/api/probes/0001/chart.png").Code)
}
