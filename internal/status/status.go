// Package status exposes the agent server's observability surface: a small
// chi router serving /healthz, /status, and /metrics.
package status

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/soundops/dawlink/core/logx"
	"github.com/soundops/dawlink/internal/bridge"
	"github.com/soundops/dawlink/internal/resolve"
)

// Info is the /status payload.
type Info struct {
	Version      string         `json:"version"`
	BuildSHA     string         `json:"build_sha"`
	BuildDate    string         `json:"build_date"`
	Connected    bool           `json:"connected"`
	HostGreeting map[string]any `json:"host_greeting,omitempty"`
	CacheRoot    string         `json:"cache_root"`
	CacheEntries int            `json:"cache_entries"`
	Process      ProcessInfo    `json:"process"`
}

// ProcessInfo carries the agent's own resource usage.
type ProcessInfo struct {
	PID        int32   `json:"pid"`
	RSSBytes   uint64  `json:"rss_bytes,omitempty"`
	CPUPercent float64 `json:"cpu_percent,omitempty"`
	UptimeSec  float64 `json:"uptime_sec"`
}

// Server assembles status snapshots from the live components.
type Server struct {
	Version   string
	BuildSHA  string
	BuildDate string
	Bridge    *bridge.Client
	Store     *resolve.Store

	started time.Time
	proc    *process.Process
}

// NewServer builds a status server over the given components.
func NewServer(version, sha, date string, br *bridge.Client, store *resolve.Store) *Server {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logx.Log.Warn().Err(err).Msg("process stats unavailable")
	}
	return &Server{
		Version:   version,
		BuildSHA:  sha,
		BuildDate: date,
		Bridge:    br,
		Store:     store,
		started:   time.Now(),
		proc:      proc,
	}
}

// Handler builds the router. CORS is only installed when origins are
// configured; the endpoint is loopback-local by default.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}))
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.snapshot())
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) snapshot() Info {
	info := Info{
		Version:   s.Version,
		BuildSHA:  s.BuildSHA,
		BuildDate: s.BuildDate,
		Process: ProcessInfo{
			PID:       int32(os.Getpid()),
			UptimeSec: time.Since(s.started).Seconds(),
		},
	}
	if s.Bridge != nil {
		info.Connected = s.Bridge.Connected()
		info.HostGreeting = s.Bridge.Greeting()
	}
	if s.Store != nil {
		info.CacheRoot = s.Store.Root()
		if idx, err := s.Store.Snapshot(); err == nil {
			info.CacheEntries = idx.Len()
		}
	}
	if s.proc != nil {
		if mem, err := s.proc.MemoryInfo(); err == nil && mem != nil {
			info.Process.RSSBytes = mem.RSS
		}
		if cpu, err := s.proc.CPUPercent(); err == nil {
			info.Process.CPUPercent = cpu
		}
	}
	return info
}

// Serve starts the status server bound to addr and shuts it down when ctx is
// done. It returns the resolved listen address.
func Serve(ctx context.Context, addr string, handler http.Handler) (string, error) {
	srv := &http.Server{Handler: handler}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	actual := ln.Addr().String()
	go func() {
		<-ctx.Done()
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(c)
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logx.Log.Error().Err(err).Str("addr", actual).Msg("status server error")
		}
	}()
	return actual, nil
}
