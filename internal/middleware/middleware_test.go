package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestNewResponseWriter(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())

	if rw.statusCode != http.StatusOK {
		t.Errorf("Expected default status code 200, got %d", rw.statusCode)
	}
	if rw.bytesWritten != 0 {
		t.Errorf("Expected bytesWritten to be 0, got %d", rw.bytesWritten)
	}
	if rw.wroteHeader {
		t.Error("Expected wroteHeader to be false initially")
	}
}

func TestResponseWriterWriteHeader(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())

	rw.WriteHeader(http.StatusNotFound)
	if rw.statusCode != http.StatusNotFound {
		t.Errorf("Expected status code 404, got %d", rw.statusCode)
	}

	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusNotFound {
		t.Error("Status code should not change after first WriteHeader")
	}
}

func TestResponseWriterWrite(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())

	data := []byte("test data")
	n, err := rw.Write(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != len(data) || rw.bytesWritten != int64(len(data)) {
		t.Errorf("Expected %d bytes written, got n=%d total=%d", len(data), n, rw.bytesWritten)
	}
	if !rw.wroteHeader {
		t.Error("Expected wroteHeader to be true after Write")
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"line\nbreak", "line break"},
		{"cr\rlf", "cr lf"},
		{"nul\x00byte", "nulbyte"},
		{"\x1b[31mred", "[31mred"},
		{"tab\tkept", "tab\tkept"},
		{"bell\x07", "bell"},
	}

	for _, tt := range tests {
		if got := sanitizeLogField(tt.in); got != tt.want {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestShouldSkip(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		config LoggingConfig
		want   bool
	}{
		{"api request", "POST", "/api/player/next", DefaultLoggingConfig(), false},
		{"health logged by default", "GET", "/health", DefaultLoggingConfig(), false},
		{"health skipped", "GET", "/health", LoggingConfig{LogHealthChecks: false, LogPolling: true}, true},
		{"player polling skipped by default", "GET", "/api/player", DefaultLoggingConfig(), true},
		{"player polling with slash", "GET", "/api/player/", DefaultLoggingConfig(), true},
		{"player polling enabled", "GET", "/api/player", LoggingConfig{LogHealthChecks: true, LogPolling: true}, false},
		{"player commands always logged", "POST", "/api/player/pause", DefaultLoggingConfig(), false},
		{"skip path prefix", "GET", "/api/playlists/x", LoggingConfig{SkipPaths: []string{"/api/playlists"}, LogHealthChecks: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			if got := shouldSkip(req, tt.config); got != tt.want {
				t.Errorf("shouldSkip(%s %s) = %v, want %v", tt.method, tt.path, got, tt.want)
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded list", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.2.3.4:5", "10.0.0.1"},
		{"forwarded single", map[string]string{"X-Forwarded-For": " 10.0.0.9 "}, "1.2.3.4:5", "10.0.0.9"},
		{"real ip", map[string]string{"X-Real-IP": "10.1.1.1"}, "1.2.3.4:5", "10.1.1.1"},
		{"remote addr", nil, "192.168.1.5:4321", "192.168.1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", http.NoBody)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatLine(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/playlists/rock%0Aevil?format=m3u", http.NoBody)
	req.RemoteAddr = "127.0.0.1:9999"
	req.Header.Set("User-Agent", "curl 8.0")

	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)
	rw.WriteHeader(http.StatusNotFound)
	_, _ = rw.Write([]byte("missing"))

	l := NewW3CLogger(DefaultLoggingConfig(), "avplay/1.0")
	when := time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)
	line := l.formatLine(req, rw, 42*time.Millisecond, when)

	want := `2024-03-09 14:05:06 127.0.0.1 GET /api/playlists/rock evil format=m3u 404 7 42 - "curl 8.0"`
	if line != want {
		t.Errorf("formatLine() =\n%q\nwant\n%q", line, want)
	}
}

func TestEscapeW3CField(t *testing.T) {
	if got := escapeW3CField("simple"); got != "simple" {
		t.Errorf("got %q", got)
	}
	if got := escapeW3CField(`say "hi"`); got != `"say ""hi"""` {
		t.Errorf("got %q", got)
	}
}

func TestLoggerMiddlewarePassesThrough(t *testing.T) {
	handler := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/api/player/next", "/api/player", "/health"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", path, http.NoBody))
		if rec.Code != http.StatusAccepted || rec.Body.String() != "ok" {
			t.Errorf("%s: got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

func TestDefaultCompressionConfig(t *testing.T) {
	config := DefaultCompressionConfig()

	if config.MinSize != 1024 {
		t.Errorf("Expected MinSize 1024, got %d", config.MinSize)
	}
	for _, mime := range []string{"application/json", "audio/x-mpegurl", "application/xspf+xml", "audio/x-scpls"} {
		found := false
		for _, ct := range config.CompressibleTypes {
			if ct == mime {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected %s to be compressible", mime)
		}
	}
}

func serveCompressed(t *testing.T, contentType string, body []byte, acceptGzip bool) *httptest.ResponseRecorder {
	t.Helper()
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		// Two writes exercise the buffering path.
		half := len(body) / 2
		_, _ = w.Write(body[:half])
		_, _ = w.Write(body[half:])
	}))

	req := httptest.NewRequest("GET", "/api/playlists/x/export", http.NoBody)
	if acceptGzip {
		req.Header.Set("Accept-Encoding", "gzip, deflate")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCompressionMiddleware(t *testing.T) {
	large := []byte(strings.Repeat("#EXTINF:180,Artist - Title\nhttp://example.com/a.mp3\n", 100))

	t.Run("compresses large playlist exports", func(t *testing.T) {
		rec := serveCompressed(t, "audio/x-mpegurl; charset=utf-8", large, true)
		if rec.Header().Get("Content-Encoding") != "gzip" {
			t.Fatal("Expected gzip encoding")
		}
		zr, err := gzip.NewReader(rec.Body)
		if err != nil {
			t.Fatalf("gzip.NewReader: %v", err)
		}
		got, err := io.ReadAll(zr)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !bytes.Equal(got, large) {
			t.Error("Decompressed body differs from original")
		}
	})

	t.Run("leaves small responses alone", func(t *testing.T) {
		rec := serveCompressed(t, "application/json", []byte(`{"ok":true}`), true)
		if rec.Header().Get("Content-Encoding") != "" {
			t.Error("Small responses should not be compressed")
		}
		if rec.Body.String() != `{"ok":true}` {
			t.Errorf("Unexpected body %q", rec.Body.String())
		}
	})

	t.Run("leaves other types alone", func(t *testing.T) {
		rec := serveCompressed(t, "application/octet-stream", large, true)
		if rec.Header().Get("Content-Encoding") != "" {
			t.Error("Binary responses should not be compressed")
		}
		if !bytes.Equal(rec.Body.Bytes(), large) {
			t.Error("Body changed")
		}
	})

	t.Run("respects Accept-Encoding", func(t *testing.T) {
		rec := serveCompressed(t, "application/json", large, false)
		if rec.Header().Get("Content-Encoding") != "" {
			t.Error("Should not compress without Accept-Encoding: gzip")
		}
	})
}

func TestRouteLabelUsesTemplate(t *testing.T) {
	var label string
	router := mux.NewRouter()
	router.HandleFunc("/api/playlists/{name}/load", func(_ http.ResponseWriter, r *http.Request) {
		label = routeLabel(r)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/playlists/rock/load", http.NoBody))
	if label != "/api/playlists/{name}/load" {
		t.Errorf("routeLabel() = %q", label)
	}

	if got := routeLabel(httptest.NewRequest("GET", "/a/b/c/d/e", http.NoBody)); got != "/a/b/c/{path}" {
		t.Errorf("unmatched routeLabel() = %q", got)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/health", "/health"},
		{"/api/player", "/api/player"},
		{"/api/playlists/rock", "/api/playlists/rock"},
		{"/api/playlists/rock/entries/3", "/api/playlists/rock/{path}"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestMetricsMiddleware(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Metrics(DefaultMetricsConfig()))
	router.HandleFunc("/api/player/next", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.WriteHeader(http.StatusOK)
	}).Methods("POST")
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/player/next", http.NoBody))
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected the first status to win, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", http.NoBody))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for skipped path, got %d", rec.Code)
	}
}

func TestMetricsResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newMetricsResponseWriter(rec)
	if rw.statusCode != http.StatusOK {
		t.Errorf("Expected default 200, got %d", rw.statusCode)
	}
	rw.WriteHeader(http.StatusTeapot)
	if rw.statusCode != http.StatusTeapot || rec.Code != http.StatusTeapot {
		t.Errorf("Expected 418, got %d/%d", rw.statusCode, rec.Code)
	}
}

func BenchmarkLoggingMiddleware(b *testing.B) {
	handler := Logger(LoggingConfig{SkipPaths: []string{"/"}})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest("GET", "/api/player/next", http.NoBody)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
