// Package server exposes the authorization core over HTTP: routing,
// request-scoped logging context, and the per-endpoint handlers for
// authorize, token, introspect, revoke, register, and discovery.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/oauthcore-oss/oauthcore/authcode"
	"github.com/oauthcore-oss/oauthcore/client"
	"github.com/oauthcore-oss/oauthcore/discovery"
	"github.com/oauthcore-oss/oauthcore/event"
	"github.com/oauthcore-oss/oauthcore/grant"
	"github.com/oauthcore-oss/oauthcore/revoke"
	"github.com/oauthcore-oss/oauthcore/storage"
	"github.com/oauthcore-oss/oauthcore/token"
)

// Config controls how a Server is wired and how it presents itself to
// clients.
type Config struct {
	IssuerURL                    string
	SupportedScopes              []string
	EnabledGrants                grant.EnabledGrants
	AllowPlainPKCE               bool
	PKCERequiredForPublicClients bool
	AuthCodeTTL                  time.Duration
	AllowedOrigins               []string
	AllowedHeaders               []string
	RequireAuthUser              bool
	Auth                         UserAuthenticator
}

// Server wires the protocol-level packages to HTTP.
type Server struct {
	cfg       Config
	issuerURL *url.URL

	store      storage.Storage
	clients    *client.Registry
	codes      *authcode.Issuer
	tokens     *token.Issuer
	introspect *token.Introspector
	dispatcher *grant.Dispatcher
	revoker    *revoke.Engine
	emitter    event.Emitter

	logger *slog.Logger
}

// New constructs a Server. tokenCfg configures the token issuer/
// introspector (signing secret, TTLs, rotation); emitter may be nil, in
// which case lifecycle events are silently dropped.
func New(cfg Config, store storage.Storage, tokenCfg token.Config, emitter event.Emitter, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	issuerURL, err := url.Parse(cfg.IssuerURL)
	if err != nil {
		return nil, err
	}
	if emitter == nil {
		emitter = noopEmitter{}
	}

	clients := client.New(store)
	codes := authcode.New(store, authcode.Config{TTL: cfg.AuthCodeTTL})
	tokens := token.New(store, tokenCfg)
	introspector := token.NewIntrospector(store, tokenCfg)
	dispatcher := grant.New(store, clients, codes, tokens, cfg.EnabledGrants)
	revoker := revoke.New(store)

	return &Server{
		cfg: cfg, issuerURL: issuerURL, store: store, clients: clients, codes: codes,
		tokens: tokens, introspect: introspector, dispatcher: dispatcher, revoker: revoker,
		emitter: emitter, logger: logger,
	}, nil
}

func (s *Server) revokeEngine() *revoke.Engine { return s.revoker }

type noopEmitter struct{}

func (noopEmitter) Publish(ctx context.Context, t event.Type, userID, clientID string, attrs map[string]string) {
}

// Router builds the gorilla/mux router exposing every endpoint.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter().SkipClean(true).UseEncodedPath()

	withHeaders := func(h http.HandlerFunc) http.Handler {
		return s.requestContext(h)
	}
	handle := func(p string, h http.HandlerFunc) {
		r.Handle(path.Join(s.issuerURL.Path, p), withHeaders(h))
	}
	handleWithCORS := func(p string, h http.HandlerFunc) {
		var handler http.Handler = withHeaders(h)
		if len(s.cfg.AllowedOrigins) > 0 {
			cors := handlers.CORS(
				handlers.AllowedOrigins(s.cfg.AllowedOrigins),
				handlers.AllowedHeaders(s.cfg.AllowedHeaders),
			)
			handler = cors(handler)
		}
		r.Handle(path.Join(s.issuerURL.Path, p), handler)
	}
	r.NotFoundHandler = http.NotFoundHandler()

	handle("/authorize", s.handleAuthorize)
	handleWithCORS("/token", s.handleToken)
	handleWithCORS("/introspect", s.handleIntrospect)
	handleWithCORS("/revoke", s.handleRevoke)
	handle("/register", s.handleRegister)
	handleWithCORS("/.well-known/oauth-authorization-server", s.handleDiscovery)

	return SecurityHeaders(handlers.RecoveryHandler()(r))
}

type logRequestKey string

const (
	requestKeyRequestID logRequestKey = "request_id"
	requestKeyRemoteIP  logRequestKey = "client_remote_addr"
)

// requestContext attaches a request ID and the caller's remote address
// to the request context, so a slog handler built with
// NewRequestContextHandler can annotate every log line a handler emits
// while serving this request.
func (s *Server) requestContext(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), requestKeyRequestID, uuid.NewString())
		ctx = context.WithValue(ctx, requestKeyRemoteIP, r.RemoteAddr)
		start := time.Now()
		h(w, r.WithContext(ctx))
		s.logger.Debug("handled request", "path", r.URL.Path, "method", r.Method, "duration", time.Since(start))
	}
}

// NewRequestContextHandler wraps handler so that log records carry the
// request_id and client_remote_addr values requestContext attached to
// the request's context, enriching every log line written while
// handling one HTTP request.
func NewRequestContextHandler(handler slog.Handler) slog.Handler {
	return requestContextHandler{handler: handler}
}

type requestContextHandler struct{ handler slog.Handler }

func (h requestContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h requestContextHandler) Handle(ctx context.Context, record slog.Record) error {
	if v, ok := ctx.Value(requestKeyRemoteIP).(string); ok {
		record.AddAttrs(slog.String(string(requestKeyRemoteIP), v))
	}
	if v, ok := ctx.Value(requestKeyRequestID).(string); ok {
		record.AddAttrs(slog.String(string(requestKeyRequestID), v))
	}
	return h.handler.Handle(ctx, record)
}

func (h requestContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return requestContextHandler{h.handler.WithAttrs(attrs)}
}

func (h requestContextHandler) WithGroup(name string) slog.Handler {
	return requestContextHandler{h.handler.WithGroup(name)}
}
