package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const (
	// DefaultConnectTimeout is the timeout for initial HTTP connections.
	DefaultConnectTimeout = 30 * time.Second

	// DefaultRequestTimeout bounds a whole request, including the body read.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultInitializePath is the endpoint used for the initialize call.
	DefaultInitializePath = "/mcp/initialize"

	// DefaultRequestPath is the endpoint used for every other call.
	DefaultRequestPath = "/mcp/request"

	// HeaderSessionID carries session affinity in both directions.
	HeaderSessionID = "Mcp-Session-Id"

	jsonRPCVersion = "2.0"
	acceptHeader   = "application/json, text/event-stream"
	methodInit     = "initialize"
)

// HTTPConfig holds configuration for the HTTP transport.
type HTTPConfig struct {
	// InitializePath and RequestPath are joined to the session base URL.
	InitializePath string
	RequestPath    string

	// Timeout bounds each request. Zero means DefaultRequestTimeout.
	Timeout time.Duration

	// HTTPHeaders are static headers to include in all requests.
	HTTPHeaders map[string]string

	// Client is the HTTP client to clone. If nil, a default client is used.
	Client *http.Client

	Logger *slog.Logger
}

// HTTPTransport implements Transport over plain HTTP POST requests whose
// responses are either JSON or SSE framed.
type HTTPTransport struct {
	session *Session
	config  HTTPConfig
	rest    *resty.Client
	logger  *slog.Logger
}

// NewHTTPTransport creates a transport bound to the session.
func NewHTTPTransport(session *Session, config HTTPConfig) *HTTPTransport {
	if config.InitializePath == "" {
		config.InitializePath = DefaultInitializePath
	}
	if config.RequestPath == "" {
		config.RequestPath = DefaultRequestPath
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultRequestTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rest := resty.NewWithClient(cloneHTTPClient(config.Client)).
		SetBaseURL(session.BaseURL).
		SetTimeout(config.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", acceptHeader).
		SetLogger(restyLogger{logger}).
		SetDebug(DebugLogging)
	if session.AuthToken != "" {
		rest.SetAuthToken(session.AuthToken)
	}
	for k, v := range config.HTTPHeaders {
		rest.SetHeader(k, v)
	}

	return &HTTPTransport{
		session: session,
		config:  config,
		rest:    rest,
		logger:  logger,
	}
}

// Send posts a JSON-RPC request with a fresh id. Every outcome, including
// network failures, is returned inside the Response.
func (t *HTTPTransport) Send(ctx context.Context, method string, params any) Response {
	req := rpcRequest{
		JSONRPC: jsonRPCVersion,
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return errResponse(ErrorKindEncode, 0, nil, "encode request: %v", err)
	}

	r := t.rest.R().SetContext(ctx).SetBody(body)
	if sid := t.session.ID(); sid != "" {
		r.SetHeader(HeaderSessionID, sid)
	}

	resp, err := r.Post(t.endpoint(method))
	if err != nil {
		t.logger.Debug("request failed", "method", method, "id", req.ID, "error", err)
		return errResponse(ErrorKindNetwork, 0, nil, "%v", err)
	}

	raw := resp.Body()
	if DebugLogging {
		t.logger.Debug("response", "method", method, "status", resp.StatusCode(), "body", string(raw))
	}
	if !resp.IsSuccess() {
		return errResponse(ErrorKindStatus, resp.StatusCode(), resp.Header(), "HTTP %d: %s", resp.StatusCode(), raw)
	}
	return decodeBody(raw, resp.Header())
}

func (t *HTTPTransport) endpoint(method string) string {
	if method == methodInit {
		return t.config.InitializePath
	}
	return t.config.RequestPath
}

// restyLogger routes resty's internal logging through slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func cloneHTTPClient(base *http.Client) *http.Client {
	c := &http.Client{}
	if base != nil {
		*c = *base
	}
	c.Timeout = 0

	if c.Transport == nil {
		c.Transport = defaultHTTPTransport()
		return c
	}
	if t, ok := c.Transport.(*http.Transport); ok {
		tt := t.Clone()
		if tt.ResponseHeaderTimeout == 0 {
			tt.ResponseHeaderTimeout = DefaultConnectTimeout
		}
		if tt.TLSHandshakeTimeout == 0 {
			tt.TLSHandshakeTimeout = DefaultConnectTimeout
		}
		if tt.DialContext == nil {
			tt.DialContext = (&net.Dialer{
				Timeout:   DefaultConnectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext
		}
		c.Transport = tt
	}
	return c
}

func defaultHTTPTransport() *http.Transport {
	if dt, ok := http.DefaultTransport.(*http.Transport); ok {
		t := dt.Clone()
		t.ResponseHeaderTimeout = DefaultConnectTimeout
		if t.TLSHandshakeTimeout == 0 {
			t.TLSHandshakeTimeout = DefaultConnectTimeout
		}
		return t
	}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   DefaultConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   DefaultConnectTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: DefaultConnectTimeout,
	}
}
