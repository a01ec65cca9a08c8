package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"lorikeet/internal/cache"
	"lorikeet/internal/config"
	"lorikeet/internal/iiif"
	"lorikeet/internal/imageinfo"
	"lorikeet/internal/resolver"
)

var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"tif":  "image/tiff",
}

// Describer builds the metadata record for a source image.
type Describer interface {
	Describe(sourcePath, publicID string) (*imageinfo.ImageInfo, error)
}

// Renderer writes the derivative for a resolved plan to destPath.
type Renderer interface {
	Render(sourcePath string, plan *iiif.Plan, destPath string) error
}

type Handlers struct {
	config     *config.Config
	logger     *zap.Logger
	resolver   *resolver.Resolver
	infoCache  *cache.InfoCache
	derivCache *cache.DerivativeCache
	describer  Describer
	renderer   Renderer
}

func New(cfg *config.Config, logger *zap.Logger, res *resolver.Resolver,
	infoCache *cache.InfoCache, derivCache *cache.DerivativeCache,
	describer Describer, renderer Renderer) *Handlers {
	return &Handlers{
		config:     cfg,
		logger:     logger,
		resolver:   res,
		infoCache:  infoCache,
		derivCache: derivCache,
		describer:  describer,
		renderer:   renderer,
	}
}

// HandleIIIF routes /iiif/{identifier}/info.json and
// /iiif/{identifier}/{region}/{size}/{rotation}/{quality}.{format}.
// The identifier may contain encoded slashes, so segments are counted from
// the right.
func (h *Handlers) HandleIIIF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.EscapedPath(), "/iiif/"), "/")
	parts := strings.Split(path, "/")

	switch {
	case len(parts) >= 2 && parts[len(parts)-1] == "info.json":
		h.handleInfo(w, r, strings.Join(parts[:len(parts)-1], "/"))
	case len(parts) >= 5:
		n := len(parts)
		identifier := strings.Join(parts[:n-4], "/")
		h.handleImage(w, r, identifier, parts[n-4], parts[n-3], parts[n-2], parts[n-1])
	default:
		http.NotFound(w, r)
	}
}

func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handlers) handleInfo(w http.ResponseWriter, r *http.Request, rawIdentifier string) {
	identifier, err := url.PathUnescape(rawIdentifier)
	if err != nil || !iiif.ValidIdentifier(identifier) {
		http.Error(w, "Invalid identifier", http.StatusBadRequest)
		return
	}

	id := iiif.InfoIdentity(h.scheme(r), r.Host, rawIdentifier, identifier)
	info, lastMod, ok, err := h.infoCache.Get(id)
	if err != nil {
		h.logger.Error("Failed to read info cache", zap.String("url", id.URL), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !ok {
		info, lastMod, err = h.extractInfo(id, rawIdentifier, identifier)
		if err != nil {
			h.respondResolveError(w, err, identifier)
			return
		}
	}

	data, err := info.ToJSON()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if !lastMod.IsZero() {
		w.Header().Set("Last-Modified", lastMod.Format(http.TimeFormat))
	}
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Write(data)
}

func (h *Handlers) handleImage(w http.ResponseWriter, r *http.Request, rawIdentifier, region, size, rotation, qualityFormat string) {
	req, err := iiif.ParseRequest(rawIdentifier, region, size, rotation, qualityFormat)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	srcPath, err := h.resolver.Resolve(req.Identifier)
	if err != nil {
		h.respondResolveError(w, err, req.Identifier)
		return
	}

	// Metadata first: canonicalization needs the source dimensions.
	infoID := iiif.InfoIdentity(h.scheme(r), r.Host, rawIdentifier, req.Identifier)
	info, _, ok, err := h.infoCache.Get(infoID)
	if err != nil {
		h.logger.Error("Failed to read info cache", zap.String("url", infoID.URL), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !ok {
		info, err = h.describer.Describe(srcPath, h.publicID(rawIdentifier))
		if err != nil {
			h.logger.Error("Failed to extract image info", zap.String("path", srcPath), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if _, err := h.infoCache.Put(infoID, info); err != nil {
			h.logger.Error("Failed to write info cache", zap.String("url", infoID.URL), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	plan, err := req.Resolve(info.Width, info.Height)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := iiif.ImageIdentity(h.scheme(r), r.Host, req, plan)

	if fp, _, ok := h.derivCache.Get(id); ok {
		h.serveFile(w, r, fp, plan.Format)
		return
	}

	dest, err := h.derivCache.Reserve(id)
	if err != nil {
		h.logger.Error("Failed to reserve cache path", zap.String("url", id.URL), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Another spelling of the same request may already have rendered the
	// canonical file.
	if _, err := os.Stat(dest); err != nil {
		if err := h.renderer.Render(srcPath, plan, dest); err != nil {
			h.logger.Error("Failed to render derivative", zap.String("url", id.URL), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	if err := h.derivCache.Put(id, dest); err != nil {
		h.logger.Error("Failed to create cache alias", zap.String("url", id.URL), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.serveFile(w, r, dest, plan.Format)
}

// extractInfo fills the info cache for an identity that missed and returns
// the record with its fresh last-modified time.
func (h *Handlers) extractInfo(id iiif.Identity, rawIdentifier, identifier string) (*imageinfo.ImageInfo, time.Time, error) {
	srcPath, err := h.resolver.Resolve(identifier)
	if err != nil {
		return nil, time.Time{}, err
	}
	info, err := h.describer.Describe(srcPath, h.publicID(rawIdentifier))
	if err != nil {
		return nil, time.Time{}, err
	}
	lastMod, err := h.infoCache.Put(id, info)
	if err != nil {
		return nil, time.Time{}, err
	}
	return info, lastMod, nil
}

func (h *Handlers) serveFile(w http.ResponseWriter, r *http.Request, fp, format string) {
	f, err := os.Open(fp)
	if err != nil {
		h.logger.Error("Failed to open cached derivative", zap.String("path", fp), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", fi.Size()))
		w.WriteHeader(http.StatusOK)
		return
	}
	http.ServeContent(w, r, fp, fi.ModTime(), f)
}

func (h *Handlers) respondResolveError(w http.ResponseWriter, err error, identifier string) {
	if errors.Is(err, resolver.ErrNotFound) {
		http.Error(w, fmt.Sprintf("Unknown identifier: %s", identifier), http.StatusNotFound)
		return
	}
	h.logger.Error("Failed to resolve identifier", zap.String("identifier", identifier), zap.Error(err))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func (h *Handlers) publicID(rawIdentifier string) string {
	return fmt.Sprintf("%s/iiif/%s", strings.TrimSuffix(h.config.PublicBaseURL, "/"), rawIdentifier)
}

func (h *Handlers) scheme(r *http.Request) iiif.Scheme {
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		return iiif.SchemeHTTPS
	}
	return iiif.SchemeHTTP
}
