package assetcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"

	"github.com/lance13c/shopassist/internal/logging"
)

// CacheHeader tells clients where a response came from
const CacheHeader = "X-Shopassist-Cache"

// HandlerTransport is a RoundTripper that answers requests from an
// in-process handler, so the asset file server can act as the network
type HandlerTransport struct {
	Handler http.Handler
}

// RoundTrip implements http.RoundTripper
func (t HandlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	rec := httptest.NewRecorder()
	t.Handler.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

// cacheKey is the path and query for same-origin requests and the full URL
// otherwise
func (r *Registration) cacheKey(req *http.Request) string {
	if req.URL.IsAbs() && !r.sameOrigin(req) {
		return req.URL.String()
	}
	return req.URL.RequestURI()
}

func (r *Registration) sameOrigin(req *http.Request) bool {
	if !req.URL.IsAbs() {
		return true
	}
	return req.URL.Scheme == r.origin.Scheme && req.URL.Host == r.origin.Host
}

// fetch performs a network request; target is a path on the origin or an
// absolute URL
func (r *Registration) fetch(ctx context.Context, method, target string, header http.Header, body io.Reader) (*CachedResponse, error) {
	ref, err := r.origin.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid asset URL %q: %w", target, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, ref.String(), body)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := r.network.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &CachedResponse{
		URL:      target,
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     data,
		StoredAt: r.now().UTC(),
	}, nil
}

// ServeHTTP answers from the controller's cache first, then the network.
// Successful same-origin GET responses are copied into the cache before
// they are returned. When the network fails the cached shell is served, and
// without one the request fails with 502.
func (r *Registration) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	controller := r.Controller()
	key := r.cacheKey(req)

	if controller != nil && req.Method == http.MethodGet {
		cached, err := r.storage.Match(ctx, controller.version, key)
		if err != nil {
			logging.Warn("Cache lookup for %s failed: %v", key, err)
		} else if cached != nil {
			writeResponse(w, cached, "hit")
			return
		}
	}

	target := key
	if req.URL.IsAbs() {
		target = req.URL.String()
	}
	resp, err := r.fetch(ctx, req.Method, target, req.Header, req.Body)
	if err != nil {
		logging.Warn("Network fetch for %s failed: %v", key, err)
		if controller != nil {
			shell, merr := r.storage.Match(ctx, controller.version, r.opts.Shell)
			if merr == nil && shell != nil {
				writeResponse(w, shell, "fallback")
				return
			}
		}
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	if controller != nil && req.Method == http.MethodGet && resp.Status == http.StatusOK && r.sameOrigin(req) {
		resp.URL = key
		if err := r.storage.Put(ctx, controller.version, resp); err != nil {
			logging.Warn("Failed to cache %s: %v", key, err)
		}
	}
	writeResponse(w, resp, "miss")
}

func writeResponse(w http.ResponseWriter, resp *CachedResponse, source string) {
	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	w.Header().Set(CacheHeader, source)
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}
