// Package httpapp serves the device's small HTTP surface over the
// gVisor-backed TCP listener: a static landing page, a stats endpoint,
// and the RGB LED control endpoint. This is application code above the
// wire engine, not part of it — the same role the teacher's own
// example/web_server.go plays above its CDC-ECM link.
package httpapp

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/usbarmory/ncmgadget/rgbled"
)

// Stats is the data source for GET /stats (loops-per-second and a
// temperature reading), supplied by the main loop's perf counter.
type Stats interface {
	LoopsPerSecond() uint32
	TemperatureC() float32
}

// Server owns the registered handlers; callers Serve it over any
// net.Listener (normally the listener gonet.ListenTCP returns for the
// gVisor stack's TCP port 80).
type Server struct {
	mux     *http.ServeMux
	indexGz []byte
	leds    *rgbled.Controller
	stats   Stats
}

const indexHTML = `<!doctype html>
<html><head><title>ncmgadget</title></head>
<body>
<h1>ncmgadget</h1>
<p>USB CDC-NCM IP-over-USB adapter.</p>
<p><a href="/stats">/stats</a></p>
</body></html>
`

// New builds the handler set. leds and stats back the /rgb and /stats
// routes respectively.
func New(leds *rgbled.Controller, stats Stats) *Server {
	s := &Server{mux: http.NewServeMux(), leds: leds, stats: stats}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte(indexHTML))
	gz.Close()
	s.indexGz = buf.Bytes()

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/index.html", s.handleIndex)
	s.mux.HandleFunc("/stats", s.handleStats)
	s.mux.HandleFunc("/rgb", s.handleRGB)

	return s
}

// ServeHTTP satisfies http.Handler, letting Server be passed directly to
// http.Server{Handler: s} or http.Serve(listener, s).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Serve runs the HTTP server over l until it errors or is closed.
func (s *Server) Serve(l net.Listener) error {
	srv := &http.Server{Handler: s}
	return srv.Serve(l)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("Content-Encoding", "gzip")
	w.Write(s.indexGz)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	fmt.Fprintf(w, "%d,%.1f", s.stats.LoopsPerSecond(), s.stats.TemperatureC())
}

func (s *Server) handleRGB(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	body, _ := io.ReadAll(io.LimitReader(r.Body, 8))
	r.Body.Close()

	rgb, err := rgbled.ParseHexColor(string(body))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.leds.Set(rgb)
	w.WriteHeader(http.StatusOK)
}
