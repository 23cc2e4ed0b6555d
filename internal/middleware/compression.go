// Package middleware holds transport-level gin middlewares.
package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize          int      // Minimum response size to compress (bytes)
	CompressionLevel int      // Gzip compression level (1-9, 9 is best compression)
	ContentTypes     []string // Content types to compress
}

// DefaultCompressionConfig returns the default compression configuration
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:          1024,
		CompressionLevel: gzip.DefaultCompression,
		ContentTypes: []string{
			"application/json",
			"text/plain",
			"text/html",
			"text/css",
			"application/javascript",
		},
	}
}

// CompressionMiddleware gzips large textual responses
type CompressionMiddleware struct {
	config CompressionConfig
	stats  *CompressionStats
	pool   sync.Pool
}

// NewCompressionMiddleware creates a new compression middleware
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	if config.MinSize < 0 {
		config.MinSize = 0
	}
	if config.CompressionLevel < gzip.HuffmanOnly || config.CompressionLevel > gzip.BestCompression {
		config.CompressionLevel = gzip.DefaultCompression
	}

	cm := &CompressionMiddleware{
		config: config,
		stats:  &CompressionStats{},
	}
	cm.pool.New = func() any {
		gz, _ := gzip.NewWriterLevel(io.Discard, cm.config.CompressionLevel)
		return gz
	}
	return cm
}

// Handler wraps the response writer for clients that accept gzip. Bodies
// smaller than MinSize, or of other content types, pass through untouched.
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodHead || !acceptsGzip(c.Request) {
			c.Next()
			return
		}

		w := &gzipResponseWriter{ResponseWriter: c.Writer, cm: cm}
		c.Writer = w
		defer w.finish()

		c.Next()
	}
}

func acceptsGzip(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "gzip") {
			return true
		}
	}
	return false
}

func (cm *CompressionMiddleware) shouldCompress(contentType string) bool {
	for _, ct := range cm.config.ContentTypes {
		if strings.HasPrefix(contentType, ct) {
			return true
		}
	}
	return false
}

// gzipResponseWriter buffers the body until MinSize bytes are seen, then
// commits to either gzip or pass-through.
type gzipResponseWriter struct {
	gin.ResponseWriter
	cm      *CompressionMiddleware
	buf     bytes.Buffer
	gz      *gzip.Writer
	decided bool
	written int64
}

func (w *gzipResponseWriter) Write(data []byte) (int, error) {
	w.written += int64(len(data))

	switch {
	case w.gz != nil:
		return w.gz.Write(data)
	case w.decided:
		return w.ResponseWriter.Write(data)
	}

	w.buf.Write(data)
	if w.buf.Len() < w.cm.config.MinSize {
		return len(data), nil
	}
	if err := w.decide(); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Written reports buffered bytes as written so error handlers do not
// render a second body.
func (w *gzipResponseWriter) Written() bool {
	return w.buf.Len() > 0 || w.ResponseWriter.Written()
}

func (w *gzipResponseWriter) Flush() {
	if !w.decided {
		_ = w.decide()
	}
	if w.gz != nil {
		_ = w.gz.Flush()
	}
	w.ResponseWriter.Flush()
}

func (w *gzipResponseWriter) decide() error {
	w.decided = true
	h := w.Header()

	if !w.ResponseWriter.Written() && w.cm.shouldCompress(h.Get("Content-Type")) && h.Get("Content-Encoding") == "" {
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")
		h.Del("Content-Length")

		w.gz = w.cm.pool.Get().(*gzip.Writer)
		w.gz.Reset(w.ResponseWriter)
		_, err := w.gz.Write(w.buf.Bytes())
		w.buf.Reset()
		return err
	}

	_, err := w.ResponseWriter.Write(w.buf.Bytes())
	w.buf.Reset()
	return err
}

// finish flushes a short body as-is or closes the gzip stream
func (w *gzipResponseWriter) finish() {
	if !w.decided {
		w.decided = true
		if w.buf.Len() > 0 {
			_, _ = w.ResponseWriter.Write(w.buf.Bytes())
			w.buf.Reset()
		}
	}

	if w.gz == nil {
		if w.written > 0 {
			w.cm.stats.RecordRequest(w.written, w.written, false)
		}
		return
	}

	_ = w.gz.Close()
	w.gz.Reset(io.Discard)
	w.cm.pool.Put(w.gz)
	w.gz = nil
	w.cm.stats.RecordRequest(w.written, int64(w.ResponseWriter.Size()), true)
}

// CompressionStats tracks compression statistics
type CompressionStats struct {
	TotalRequests      int64
	CompressedRequests int64
	TotalBytes         int64
	CompressedBytes    int64
	mutex              sync.RWMutex
}

// RecordRequest records a response. compressedSize is the bytes sent on
// the wire.
func (cs *CompressionStats) RecordRequest(originalSize, compressedSize int64, compressed bool) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.TotalRequests++
	cs.TotalBytes += originalSize
	if compressed {
		cs.CompressedRequests++
	}
	cs.CompressedBytes += compressedSize
}

// GetStats returns current compression statistics
func (cs *CompressionStats) GetStats() map[string]any {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	ratio := float64(1)
	if cs.TotalBytes > 0 {
		ratio = float64(cs.CompressedBytes) / float64(cs.TotalBytes)
	}

	return map[string]any{
		"total_requests":      cs.TotalRequests,
		"compressed_requests": cs.CompressedRequests,
		"total_bytes":         cs.TotalBytes,
		"bytes_sent":          cs.CompressedBytes,
		"compression_ratio":   ratio,
		"compression_savings": 1.0 - ratio,
	}
}

// GetStats returns compression statistics
func (cm *CompressionMiddleware) GetStats() map[string]any {
	return cm.stats.GetStats()
}
