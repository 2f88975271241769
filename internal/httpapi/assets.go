package httpapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/bacchus320/snowflake/internal/modules/mountains/forecast"
)

//go:embed assets
var assetsFS embed.FS

const (
	staticCacheControl = "public, max-age=86400"
	workerCacheControl = "no-cache"
	openMeteoHost      = "api.open-meteo.com"
)

type workerData struct {
	CacheName         string
	CachePrefix       string
	Precache          []string
	NetworkFirstHosts []string
	NetworkFirstPaths []string
}

// Assets serves the embedded static files and the generated service worker.
// Both carry the cache version as validator.
type Assets struct {
	version string
	etag    string
	static  fs.FS
	worker  []byte
}

func NewAssets(version string) (*Assets, error) {
	return newAssetsFromFS(assetsFS, version)
}

func newAssetsFromFS(fsys fs.FS, version string) (*Assets, error) {
	if version == "" {
		return nil, fmt.Errorf("assets: empty cache version")
	}

	static, err := fs.Sub(fsys, "assets/static")
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}

	tmpl, err := template.New("service-worker.js.tmpl").
		Funcs(template.FuncMap{"json": toJSON}).
		ParseFS(fsys, "assets/service-worker.js.tmpl")
	if err != nil {
		return nil, fmt.Errorf("assets: parse service worker: %w", err)
	}

	data := workerData{
		CacheName:         forecast.CacheName(version),
		CachePrefix:       forecast.CacheName(""),
		Precache:          []string{"/", "/static/style.css", "/static/manifest.webmanifest"},
		NetworkFirstHosts: []string{openMeteoHost},
		NetworkFirstPaths: []string{"/partials/", "/api/"},
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("assets: render service worker: %w", err)
	}

	return &Assets{
		version: version,
		etag:    `"` + version + `"`,
		static:  static,
		worker:  buf.Bytes(),
	}, nil
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (a *Assets) handleServiceWorker(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Content-Type", "text/javascript; charset=utf-8")
	h.Set("Cache-Control", workerCacheControl)
	h.Set("ETag", a.etag)
	http.ServeContent(w, r, "service-worker.js", time.Time{}, bytes.NewReader(a.worker))
}

func (a *Assets) staticHandler() http.Handler {
	files := http.StripPrefix("/static/", http.FileServerFS(a.static))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/static/")
		if name == "" || strings.HasSuffix(name, "/") {
			http.NotFound(w, r)
			return
		}
		if _, err := fs.Stat(a.static, name); err != nil {
			http.NotFound(w, r)
			return
		}
		h := w.Header()
		h.Set("Cache-Control", staticCacheControl)
		h.Set("ETag", a.etag)
		if strings.HasSuffix(name, ".webmanifest") {
			h.Set("Content-Type", "application/manifest+json")
		}
		files.ServeHTTP(w, r)
	})
}

func registerAssets(mux *http.ServeMux, a *Assets) {
	mux.HandleFunc("GET /service-worker.js", a.handleServiceWorker)
	mux.Handle("GET /static/", a.staticHandler())
}
