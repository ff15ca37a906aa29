package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/upb/ip-registry/internal/observability"
	"github.com/upb/ip-registry/middleware"
	"github.com/upb/ip-registry/utils"
	"go.uber.org/zap"
)

// OriginalURIHeader carries the request URI as the client sent it
const OriginalURIHeader = "X-Original-URI"

// Proxy forwards requests to one upstream service
type Proxy struct {
	name    string
	proxy   *httputil.ReverseProxy
	timeout time.Duration
	logger  *zap.Logger
}

// NewProxy creates a proxy to target. timeout bounds each proxied request;
// zero means no bound beyond the server's own.
func NewProxy(name, target string, timeout time.Duration, logger *zap.Logger) (*Proxy, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid %s url: %w", name, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid %s url: %q is not absolute", name, target)
	}

	p := &Proxy{
		name:    name,
		timeout: timeout,
		logger:  logger.With(zap.String("upstream", name)),
	}
	p.proxy = &httputil.ReverseProxy{
		Rewrite:      rewriter(u),
		ErrorHandler: p.handleError,
	}
	return p, nil
}

// ServeHTTP implements http.Handler
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.timeout > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
		defer cancel()
		r = r.WithContext(ctx)
	}
	p.proxy.ServeHTTP(w, r)
}

// rewriter points the request at target and sets the forwarding headers.
// The identity header reaches the upstream only when the Mediator attached it.
func rewriter(target *url.URL) func(*httputil.ProxyRequest) {
	return func(pr *httputil.ProxyRequest) {
		pr.SetURL(target)
		pr.SetXForwarded()
		if pr.Out.Header.Get("X-Forwarded-For") == "" {
			// RemoteAddr carries no port once chi's RealIP has rewritten it
			pr.Out.Header.Set("X-Forwarded-For", utils.ClientIP(pr.In))
		}
		pr.Out.Header.Set(OriginalURIHeader, pr.In.RequestURI)

		pr.Out.Header.Del(RefreshTokenHeader)
		if _, ok := middleware.GetUserContext(pr.In.Context()); !ok {
			pr.Out.Header.Del(middleware.UserContextHeader)
			pr.Out.Header.Del(middleware.UserContextSignatureHeader)
		}
	}
}

func (p *Proxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	observability.FromContext(r.Context(), p.logger).Error("gateway proxy error",
		zap.String("upstream", p.name),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	_ = utils.WriteServiceUnavailable(w, "Unable to process request")
}
