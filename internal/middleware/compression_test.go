package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newCompressedRouter(cm *CompressionMiddleware) *gin.Engine {
	r := gin.New()
	r.Use(cm.Handler())
	r.GET("/large", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"payload": strings.Repeat("concentration ", 400)})
	})
	r.GET("/small", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/binary", func(c *gin.Context) {
		c.Data(http.StatusOK, "image/png", make([]byte, 4096))
	})
	return r
}

func TestCompressionMiddleware(t *testing.T) {
	cm := NewCompressionMiddleware(DefaultCompressionConfig())
	r := newCompressedRouter(cm)

	tests := []struct {
		name           string
		path           string
		acceptEncoding string
		expectGzip     bool
	}{
		{name: "large json", path: "/large", acceptEncoding: "gzip, deflate", expectGzip: true},
		{name: "quality values", path: "/large", acceptEncoding: "br;q=1.0, gzip;q=0.8", expectGzip: true},
		{name: "client without gzip", path: "/large", acceptEncoding: ""},
		{name: "small body", path: "/small", acceptEncoding: "gzip"},
		{name: "binary content", path: "/binary", acceptEncoding: "gzip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code)

			if !tt.expectGzip {
				assert.Empty(t, w.Header().Get("Content-Encoding"))
				return
			}

			assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
			assert.Equal(t, "Accept-Encoding", w.Header().Get("Vary"))

			zr, err := gzip.NewReader(w.Body)
			require.NoError(t, err)
			body, err := io.ReadAll(zr)
			require.NoError(t, err)
			assert.Contains(t, string(body), `"payload":"concentration concentration`)
		})
	}

	stats := cm.GetStats()
	assert.Equal(t, int64(2), stats["compressed_requests"])
	assert.Equal(t, int64(4), stats["total_requests"])
	assert.Less(t, stats["compression_ratio"].(float64), 1.0)
}

func TestCompressionMiddleware_SmallBodyIntact(t *testing.T) {
	r := newCompressedRouter(NewCompressionMiddleware(DefaultCompressionConfig()))

	req := httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
}
