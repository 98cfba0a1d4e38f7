package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// CompressConfig tunes response compression.
type CompressConfig struct {
	// Quality is the brotli level, 0 to 11.
	Quality int
	// MinLength is the body size below which responses go out uncompressed.
	MinLength int
	// SkipPrefixes lists path prefixes that are never compressed.
	SkipPrefixes []string
}

// DefaultCompressConfig favors latency over ratio; papers and analytics are a few KB of JSON.
var DefaultCompressConfig = CompressConfig{
	Quality:   4,
	MinLength: 1024,
}

// compressWriter buffers the start of a body until it knows whether compression pays off.
type compressWriter struct {
	gin.ResponseWriter
	enc       *brotli.Writer
	quality   int
	minLength int
	buf       []byte
	decided   bool
	compress  bool
}

func (w *compressWriter) Write(p []byte) (int, error) {
	if w.decided {
		if w.compress {
			return w.enc.Write(p)
		}
		return w.ResponseWriter.Write(p)
	}

	w.buf = append(w.buf, p...)
	if len(w.buf) < w.minLength {
		return len(p), nil
	}
	if err := w.decide(true); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *compressWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Flush commits to an encoding so streamed bodies reach the client.
func (w *compressWriter) Flush() {
	if !w.decided {
		_ = w.decide(len(w.buf) >= w.minLength)
	}
	if w.compress {
		_ = w.enc.Flush()
	}
	w.ResponseWriter.Flush()
}

// decide picks plain or brotli output and drains the buffer.
func (w *compressWriter) decide(large bool) error {
	w.decided = true
	h := w.Header()
	w.compress = large && h.Get("Content-Encoding") == "" && compressible(h.Get("Content-Type"))

	buf := w.buf
	w.buf = nil

	if !w.compress {
		if len(buf) == 0 {
			return nil
		}
		_, err := w.ResponseWriter.Write(buf)
		return err
	}

	h.Set("Content-Encoding", "br")
	h.Del("Content-Length")
	w.enc = brotli.NewWriterLevel(w.ResponseWriter, w.quality)
	_, err := w.enc.Write(buf)
	return err
}

func (w *compressWriter) finish() error {
	if !w.decided {
		if err := w.decide(false); err != nil {
			return err
		}
	}
	if w.compress {
		return w.enc.Close()
	}
	return nil
}

// Compress brotli-encodes JSON and text responses for clients that accept "br".
func Compress(cfg CompressConfig) gin.HandlerFunc {
	if cfg.Quality < brotli.BestSpeed || cfg.Quality > brotli.BestCompression {
		cfg.Quality = DefaultCompressConfig.Quality
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultCompressConfig.MinLength
	}

	return func(c *gin.Context) {
		if streaming(c) || hasPrefix(c.Request.URL.Path, cfg.SkipPrefixes) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")

		cw := &compressWriter{
			ResponseWriter: c.Writer,
			quality:        cfg.Quality,
			minLength:      cfg.MinLength,
		}
		c.Writer = cw

		defer func() {
			if err := cw.finish(); err != nil {
				_ = c.Error(err)
			}
		}()

		c.Next()
	}
}

// streaming reports requests whose responses must not be buffered: SSE and WebSocket upgrades.
func streaming(c *gin.Context) bool {
	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		return true
	}
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

func compressible(contentType string) bool {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "text/event-stream"):
		return false
	case strings.HasPrefix(ct, "application/json"), strings.HasPrefix(ct, "text/"):
		return true
	}
	return false
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		// Drop any q-value: "br;q=0.9".
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}
