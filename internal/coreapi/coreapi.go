// Package coreapi is the API served by default: a clock endpoint resolving
// timezones and a small user directory whose types are declared in SDL.
package coreapi

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"time"
	_ "time/tzdata"

	schema "github.com/hanpama/apiform/internal/schema"
	sdl "github.com/hanpama/apiform/internal/sdl"
	server "github.com/hanpama/apiform/internal/server"
)

//go:embed schema.graphql
var source string

// Token grants an identity and its scopes to a bearer credential.
type Token struct {
	Identity string   `yaml:"identity"`
	Scopes   []string `yaml:"scopes"`
}

// API holds the definitions and data behind the endpoints.
type API struct {
	doc    *sdl.Document
	now    func() time.Time
	users  *Directory
	tokens map[string]Token

	auth         *schema.Authenticator
	timezone     *schema.ArgumentSet
	tzNotFound   *schema.ErrorType
	userNotFound *schema.ErrorType
	timeObj      *schema.Object
}

type Option func(*API)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(a *API) { a.now = now } }

// WithDirectory replaces the seeded user directory.
func WithDirectory(d *Directory) Option { return func(a *API) { a.users = d } }

// WithTokens sets the accepted bearer credentials.
func WithTokens(tokens map[string]Token) Option { return func(a *API) { a.tokens = tokens } }

// New loads the embedded schema and wires resolvers and the authenticator
// onto its definitions.
func New(opts ...Option) (*API, error) {
	doc, err := sdl.Parse("coreapi.graphql", source)
	if err != nil {
		return nil, err
	}
	a := &API{doc: doc, now: time.Now, users: Seed()}
	for _, o := range opts {
		o(a)
	}

	invalidToken := doc.ErrorType("InvalidToken")
	a.auth = schema.NewAuthenticator("TokenAuth").
		SetType(schema.AuthenticatorBearer).
		SetDescription("Bearer tokens from the server configuration. Requests without one are anonymous.").
		AddPotentialError(invalidToken).
		SetAction(func(r *schema.Request, credential string) error {
			if credential == "" {
				return nil
			}
			tok, ok := a.tokens[credential]
			if !ok {
				return invalidToken.Raise(nil)
			}
			r.Identity = tok.Identity
			r.Scopes = tok.Scopes
			return nil
		})

	a.userNotFound = doc.ErrorType("UserNotFound")
	doc.ArgumentSet("UserLookup").
		AddPotentialError(a.userNotFound).
		SetResolver(a.resolveUser)

	a.tzNotFound = doc.ErrorType("TimezoneNotFound")
	a.timezone = schema.NewLookupArgumentSet("TimezoneLookup").
		SetDescription("Selects a timezone by IANA name or by UTC offset in minutes.").
		AddArgument(schema.NewArgument("name", "string")).
		AddArgument(schema.NewArgument("offset", "integer").
			AddValidation("within_a_day", func(v any) bool {
				n := v.(int64)
				return n > -24*60 && n < 24*60
			})).
		AddPotentialError(a.tzNotFound).
		SetResolver(a.resolveTimezone)

	a.timeObj = timeObject()
	return a, nil
}

// Document returns the SDL document the user types come from.
func (a *API) Document() *sdl.Document { return a.doc }

// Registry returns a registry holding the API's definitions. Endpoint
// definitions are added by server.New.
func (a *API) Registry() *schema.Registry {
	return a.doc.Registry().Add(a.timezone, a.timeObj)
}

// Endpoints declares the routes of the API.
func (a *API) Endpoints() []*server.Endpoint {
	userObj := a.doc.Object("User")
	timeFields := func() *schema.FieldSet {
		return schema.NewFieldSet(
			schema.NewField("time", a.timeObj),
			schema.NewField("timezone", "string"),
		)
	}
	return []*server.Endpoint{
		{
			Method:      http.MethodGet,
			Path:        "/time",
			Name:        "time",
			Description: "Returns the current time, in UTC unless a timezone is given.",
			Arguments: schema.NewArgumentSet("TimeArguments").
				AddArgument(schema.NewArgument("timezone", a.timezone)),
			Fields: timeFields(),
			Action: a.currentTime,
		},
		{
			Method:      http.MethodGet,
			Path:        "/time/{timezone}",
			Name:        "timeIn",
			Description: "Returns the current time in the named timezone.",
			Arguments: schema.NewArgumentSet("TimeInArguments").
				AddArgument(schema.NewArgument("timezone", a.timezone).SetRequired(true)),
			Fields: timeFields(),
			Action: a.currentTime,
		},
		{
			Method:        http.MethodGet,
			Path:          "/users",
			Name:          "listUsers",
			Authenticator: a.auth,
			Scopes:        []string{"users"},
			Arguments:     a.doc.ArgumentSet("UserFilter"),
			Fields:        schema.NewFieldSet(schema.NewField("users", schema.ArrayOf(userObj))),
			Action:        a.listUsers,
		},
		{
			Method:        http.MethodGet,
			Path:          "/users/{user}",
			Name:          "getUser",
			Authenticator: a.auth,
			Scopes:        []string{"users"},
			Arguments: schema.NewArgumentSet("GetUserArguments").
				AddArgument(schema.NewArgument("user", "UserLookup").SetRequired(true)),
			Fields: schema.NewFieldSet(schema.NewField("user", userObj)),
			Action: func(ctx context.Context, call *server.Call) (any, error) {
				u, err := call.Lookup(ctx, "user")
				if err != nil {
					return nil, err
				}
				return map[string]any{"user": u}, nil
			},
		},
	}
}

type clockResult struct {
	Time     time.Time
	Timezone string
}

func (a *API) currentTime(ctx context.Context, call *server.Call) (any, error) {
	loc := time.UTC
	if v, err := call.Lookup(ctx, "timezone"); err != nil {
		return nil, err
	} else if v != nil {
		loc = v.(*time.Location)
	}
	return clockResult{Time: a.now().In(loc), Timezone: loc.String()}, nil
}

func (a *API) resolveTimezone(r *schema.Request, key string, value any) (any, error) {
	switch key {
	case "name":
		loc, err := time.LoadLocation(value.(string))
		if err != nil || value == "" {
			return nil, a.tzNotFound.Raise(map[string]any{"name": value})
		}
		return loc, nil
	case "offset":
		minutes := int(value.(int64))
		return time.FixedZone(offsetName(minutes), minutes*60), nil
	}
	return nil, fmt.Errorf("coreapi: unknown timezone key %q", key)
}

func offsetName(minutes int) string {
	sign := '+'
	if minutes < 0 {
		sign, minutes = '-', -minutes
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, minutes/60, minutes%60)
}

// timeObject reads its fields off a time.Time.
func timeObject() *schema.Object {
	at := func(fn func(t time.Time) any) schema.Backend {
		return func(source any, _ *schema.Request) (any, error) {
			return fn(source.(time.Time)), nil
		}
	}
	return schema.NewObject("Time").
		SetDescription("A point in time seen from one timezone.").
		AddField(schema.NewField("unix", "unix_time").
			SetBackend(at(func(t time.Time) any { return t }))).
		AddField(schema.NewField("day_of_week", "string").
			SetBackend(at(func(t time.Time) any { return t.Weekday().String() }))).
		AddField(schema.NewField("month", "integer").SetInclude(false).
			SetBackend(at(func(t time.Time) any { return int(t.Month()) }))).
		AddField(schema.NewField("date", "date").SetInclude(false).
			SetBackend(at(func(t time.Time) any { return t }))).
		AddField(schema.NewField("full", "string").SetInclude(false).
			SetBackend(at(func(t time.Time) any { return t.Format(time.RFC3339) })))
}

func (a *API) listUsers(ctx context.Context, call *server.Call) (any, error) {
	var filter struct {
		Role  string
		Limit int64
	}
	if err := call.Arguments.Decode(&filter); err != nil {
		return nil, err
	}
	return map[string]any{"users": a.users.List(Role(filter.Role), int(filter.Limit))}, nil
}

func (a *API) resolveUser(r *schema.Request, key string, value any) (any, error) {
	var u *User
	switch key {
	case "id":
		u = a.users.ByID(value.(string))
	case "email":
		u = a.users.ByEmail(value.(string))
	}
	if u == nil {
		return nil, a.userNotFound.Raise(map[string]any{key: value})
	}
	return u, nil
}
