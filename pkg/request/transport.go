package request

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Options describe one HTTP request.
type Options struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is a completed HTTP exchange.
type Response struct {
	StatusCode  int                 `json:"statusCode"`
	ContentType string              `json:"contentType"`
	Headers     map[string][]string `json:"headers"`
	Body        []byte              `json:"body"`
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// Transport performs HTTP requests. On devices it is the native HTTP
// client; FastHTTPTransport serves desktop hosts and tests.
type Transport interface {
	Do(ctx context.Context, opts Options) (*Response, error)
}

// TransportConfig tunes FastHTTPTransport.
type TransportConfig struct {
	Timeout         time.Duration
	MaxConnsPerHost int
	UserAgent       string
}

// FastHTTPTransport is a Transport backed by a fasthttp.Client.
type FastHTTPTransport struct {
	client    *fasthttp.Client
	userAgent string
	logger    *zap.Logger
}

// NewFastHTTPTransport builds a transport from cfg. A nil logger disables logging.
func NewFastHTTPTransport(cfg TransportConfig, logger *zap.Logger) *FastHTTPTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FastHTTPTransport{
		client: &fasthttp.Client{
			ReadTimeout:     cfg.Timeout,
			WriteTimeout:    cfg.Timeout,
			MaxConnsPerHost: cfg.MaxConnsPerHost,
		},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Client exposes the underlying client, e.g. to replace its Dial function.
func (t *FastHTTPTransport) Client() *fasthttp.Client {
	return t.client
}

// Do sends the request. If ctx is canceled before the response arrives,
// Do returns ctx.Err() and the in-flight exchange is discarded.
func (t *FastHTTPTransport) Do(ctx context.Context, opts Options) (*Response, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	release := func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}

	req.SetRequestURI(opts.URL)
	method := opts.Method
	if method == "" {
		method = fasthttp.MethodGet
	}
	req.Header.SetMethod(method)
	if t.userAgent != "" {
		req.Header.SetUserAgent(t.userAgent)
	}
	for name, value := range opts.Headers {
		req.Header.Set(name, value)
	}
	if len(opts.Body) > 0 {
		req.SetBody(opts.Body)
	}

	done := make(chan error, 1)
	go func() {
		if deadline, ok := ctx.Deadline(); ok {
			done <- t.client.DoDeadline(req, resp, deadline)
			return
		}
		done <- t.client.Do(req, resp)
	}()

	select {
	case err := <-done:
		defer release()
		if err != nil {
			t.logger.Debug("http request failed",
				zap.String("method", method),
				zap.String("url", opts.URL),
				zap.Error(err))
			return nil, err
		}
		out := &Response{
			StatusCode:  resp.StatusCode(),
			ContentType: string(resp.Header.ContentType()),
			Headers:     make(map[string][]string),
			Body:        append([]byte(nil), resp.Body()...),
		}
		for key, value := range resp.Header.All() {
			k := string(key)
			out.Headers[k] = append(out.Headers[k], string(value))
		}
		t.logger.Debug("http request completed",
			zap.String("method", method),
			zap.String("url", opts.URL),
			zap.Int("status_code", out.StatusCode),
			zap.Int("response_size", len(out.Body)))
		return out, nil
	case <-ctx.Done():
		go func() {
			<-done
			release()
		}()
		return nil, ctx.Err()
	}
}
