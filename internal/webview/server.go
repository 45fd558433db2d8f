package webview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultAssetAddr lets the OS pick a free loopback port.
const DefaultAssetAddr = "127.0.0.1:0"

// AssetServer serves the built GUI to the webview.
type AssetServer struct {
	Dir    string
	Logger *zap.Logger

	server *http.Server
	url    string
	errCh  chan error
}

// Start listens on addr and serves in the background. It returns the base URL.
func (s *AssetServer) Start(addr string) (string, error) {
	if s.Dir == "" {
		return "", errors.New("asset directory required")
	}
	if _, err := os.Stat(filepath.Join(s.Dir, "index.html")); err != nil {
		return "", fmt.Errorf("gui assets: %w", err)
	}
	if addr == "" {
		addr = DefaultAssetAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.url = "http://" + ln.Addr().String()
	s.errCh = make(chan error, 1)
	go func() {
		err := s.server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.errCh <- err
	}()
	s.logger().Info("serving gui", zap.String("url", s.url), zap.String("dir", s.Dir))
	return s.url, nil
}

// URL returns the base URL once started.
func (s *AssetServer) URL() string { return s.url }

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *AssetServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return <-s.errCh
}

// Handler routes /health and the static GUI files.
func (s *AssetServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/", s.handleAssets())
	return mux
}

func (s *AssetServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleAssets serves files from Dir. Unknown extensionless paths fall back
// to index.html so client-side routes survive a reload.
func (s *AssetServer) handleAssets() http.Handler {
	files := http.FileServer(http.Dir(s.Dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		full := filepath.Join(s.Dir, filepath.FromSlash(clean))
		if _, err := os.Stat(full); err != nil && path.Ext(clean) == "" && !strings.HasPrefix(clean, "/assets/") {
			http.ServeFile(w, r, filepath.Join(s.Dir, "index.html"))
			return
		}
		files.ServeHTTP(w, r)
	})
}

func (s *AssetServer) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
