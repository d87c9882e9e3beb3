package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	eventbus "github.com/hanpama/apiform/internal/eventbus"
	events "github.com/hanpama/apiform/internal/events"
	executor "github.com/hanpama/apiform/internal/executor"
	fieldspec "github.com/hanpama/apiform/internal/fieldspec"
	reqid "github.com/hanpama/apiform/internal/reqid"
	schema "github.com/hanpama/apiform/internal/schema"
)

// Server is an http.Handler serving a set of endpoints over a built schema.
// It constructs arguments, runs actions and serializes responses.
type Server struct {
	router chi.Router
	schema *schema.Schema
	exec   *executor.Executor
	opt    Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// FieldSpecHeader names the header carrying the client's field spec.
	FieldSpecHeader string

	// Logger receives request and failure logs. Defaults to a no-op logger.
	Logger *zap.Logger

	// Bus receives HTTP and executor events. May be nil.
	Bus *eventbus.Bus

	mounts []mount
}

type mount struct {
	pattern string
	handler http.Handler
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithFieldSpecHeader(name string) Option { return func(o *Options) { o.FieldSpecHeader = name } }
func WithLogger(l *zap.Logger) Option        { return func(o *Options) { o.Logger = l } }
func WithBus(b *eventbus.Bus) Option         { return func(o *Options) { o.Bus = b } }

// WithHandler mounts an extra handler, e.g. a metrics endpoint.
func WithHandler(pattern string, h http.Handler) Option {
	return func(o *Options) { o.mounts = append(o.mounts, mount{pattern, h}) }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New registers the endpoints' definitions on reg, builds the schema and
// mounts one route per endpoint. Schema violations and malformed endpoints
// are returned as errors.
func New(reg *schema.Registry, endpoints []*Endpoint, opts ...Option) (*Server, error) {
	op := Options{Timeout: 10 * time.Second, FieldSpecHeader: "X-Field-Spec"}
	for _, f := range opts {
		f(&op)
	}
	if op.Logger == nil {
		op.Logger = zap.NewNop()
	}

	seen := map[string]bool{}
	for _, ep := range endpoints {
		if err := prepare(reg, ep, seen); err != nil {
			return nil, err
		}
	}
	sch, err := reg.Build()
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		schema: sch,
		exec:   executor.NewExecutor(op.Bus),
		opt:    op,
	}
	s.router.Use(s.cors)
	for _, ep := range endpoints {
		s.router.Method(ep.Method, ep.Path, s.handler(ep))
	}
	for _, m := range op.mounts {
		s.router.Handle(m.pattern, m.handler)
	}
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{
			Code:        "route_not_found",
			Description: "No route matches " + r.Method + " " + r.URL.Path,
		}, s.opt.Pretty, s.opt.Logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Code: "method_not_allowed"}, s.opt.Pretty, s.opt.Logger)
	})
	return s, nil
}

// prepare validates ep and adds its definitions to reg.
func prepare(reg *schema.Registry, ep *Endpoint, seen map[string]bool) error {
	if ep.Method == "" || ep.Path == "" {
		return fmt.Errorf("server: endpoint %q needs a method and a path", ep.Name)
	}
	ep.Method = strings.ToUpper(ep.Method)
	if ep.Name == "" {
		ep.Name = ep.Method + " " + ep.Path
	}
	if ep.Action == nil {
		return fmt.Errorf("server: endpoint %s has no action", ep.Name)
	}
	if st := ep.status(); st < 100 || st > 599 {
		return fmt.Errorf("server: endpoint %s has invalid HTTP status %d", ep.Name, st)
	}
	route := ep.Method + " " + ep.Path
	if seen[route] {
		return fmt.Errorf("server: route %s is declared more than once", route)
	}
	seen[route] = true

	if ep.Arguments == nil {
		ep.Arguments = schema.NewArgumentSet(identifier(ep.Name) + "Arguments")
	}
	if ep.Fields == nil {
		ep.Fields = schema.NewFieldSet()
	}
	reg.Add(ep.Arguments)
	reg.AddFieldSet(ep.Name, ep.Fields)
	if ep.Authenticator != nil {
		reg.Add(ep.Authenticator)
	}
	for _, e := range ep.Errors {
		reg.Add(e)
	}
	return nil
}

// Schema returns the built schema.
func (s *Server) Schema() *schema.Schema { return s.schema }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handler(ep *Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if _, ok := ctx.Deadline(); !ok && s.opt.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.opt.Timeout)
			defer cancel()
		}
		ctx, rid := reqid.WithID(ctx, r.Header.Get(reqid.Header))
		w.Header().Set(reqid.Header, rid)

		status := http.StatusOK
		start := time.Now()
		eventbus.Publish(ctx, s.opt.Bus, events.HTTPStart{Endpoint: ep.Name, Request: r})
		defer func() {
			d := time.Since(start)
			eventbus.Publish(ctx, s.opt.Bus, events.HTTPFinish{Endpoint: ep.Name, Request: r, Status: status, Duration: d})
			s.opt.Logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", ep.Name),
				zap.Int("status", status),
				zap.Duration("duration", d),
				zap.String("request_id", rid),
			)
		}()

		req := &schema.Request{
			Context: ctx,
			Route:   routeValues(r),
			Values:  map[string]any{},
		}
		header := w.Header()
		body, err := s.serve(ctx, ep, r, req, header)
		if err != nil {
			f := translate(err, req)
			if f.defect {
				logged := err
				if f.cause != nil {
					logged = f.cause
				}
				s.opt.Logger.Error("request failed",
					zap.String("endpoint", ep.Name),
					zap.String("request_id", rid),
					zap.Error(logged),
				)
			} else {
				s.opt.Logger.Debug("request rejected",
					zap.String("endpoint", ep.Name),
					zap.String("request_id", rid),
					zap.String("code", f.body.Code),
					zap.Error(err),
				)
			}
			status = f.status
			writeJSON(w, status, f.body, s.opt.Pretty, s.opt.Logger)
			return
		}
		status = ep.status()
		writeJSON(w, status, body, s.opt.Pretty, s.opt.Logger)
	}
}

// serve runs one request through authentication, construction, the action
// and serialization.
func (s *Server) serve(ctx context.Context, ep *Endpoint, r *http.Request, req *schema.Request, header http.Header) (map[string]any, error) {
	spec, err := fieldspec.Parse(r.Header.Get(s.opt.FieldSpecHeader))
	if err != nil {
		return nil, err
	}
	req.Fields = spec

	if auth := ep.Authenticator; auth != nil {
		credential := ""
		if auth.Type == schema.AuthenticatorBearer {
			credential = bearerToken(r)
		}
		if err := auth.Authenticate(req, credential); err != nil {
			return nil, err
		}
		if scope, missing := auth.MissingScope(req, ep.Scopes); missing {
			return nil, &scopeError{scope: scope}
		}
	}

	input, err := readInput(r, s.opt.MaxBodyBytes)
	if err != nil {
		return nil, err
	}
	args, err := s.exec.Construct(ctx, input, ep.Arguments, req)
	if err != nil {
		return nil, err
	}

	call := &Call{
		Endpoint:  ep,
		Request:   req,
		Arguments: args,
		HTTP:      r,
		exec:      s.exec,
		header:    header,
	}
	source, err := ep.Action(ctx, call)
	if err != nil {
		return nil, err
	}
	return s.exec.Serialize(ctx, ep.Name, source, ep.Fields, req)
}

// identifier turns "GET /users/{id}" into "GetUsersId".
func identifier(name string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(strings.ToLower(part[1:]))
	}
	return b.String()
}

func routeValues(r *http.Request) map[string]string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || len(rctx.URLParams.Keys) == 0 {
		return nil
	}
	out := make(map[string]string, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		v := rctx.URLParams.Values[i]
		if u, err := url.PathUnescape(v); err == nil {
			v = u
		}
		out[k] = v
	}
	return out
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.opt.CORS.AllowedOrigins) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		setCORSHeaders(w, r, s.opt.CORS)
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
