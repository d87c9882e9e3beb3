package executor

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	schema "github.com/hanpama/apiform/internal/schema"
)

func mustBuild(t *testing.T, defs ...schema.Definition) *schema.Schema {
	t.Helper()
	s, err := schema.NewRegistry(defs...).Build()
	require.NoError(t, err)
	return s
}

func requireKind(t *testing.T, err error, kind Kind, issue Issue, path Path) *Error {
	t.Helper()
	var e *Error
	require.True(t, errors.As(err, &e), "expected *Error, got %v", err)
	require.Equal(t, kind, e.Kind)
	require.Equal(t, issue, e.Issue)
	if diff := cmp.Diff(path, e.Path); diff != "" {
		t.Fatalf("error path mismatch (-want +got):\n%s", diff)
	}
	return e
}

func TestConstruct_DefaultsAndRequired(t *testing.T) {
	def := schema.NewArgumentSet("Person").
		AddArgument(schema.NewArgument("name", "string").SetRequired(true)).
		AddArgument(schema.NewArgument("age", "integer").SetDefault(0)).
		AddArgument(schema.NewArgument("nickname", "string"))
	mustBuild(t, def)

	t.Run("default applied", func(t *testing.T) {
		set, err := Construct(map[string]any{"name": "Adam"}, def, nil)
		require.NoError(t, err)
		if diff := cmp.Diff(map[string]any{"name": "Adam", "age": int64(0)}, set.ToMap()); diff != "" {
			t.Fatalf("ToMap mismatch (-want +got):\n%s", diff)
		}
		require.False(t, set.Has("nickname"))
		require.Equal(t, 2, set.Len())
	})

	t.Run("required absent", func(t *testing.T) {
		_, err := Construct(map[string]any{"age": 3}, def, nil)
		e := requireKind(t, err, KindMissingArgument, "", Path{"name"})
		require.Same(t, def.Argument("name"), e.Argument)
		require.True(t, e.ClientError())
	})

	t.Run("required null", func(t *testing.T) {
		_, err := Construct(map[string]any{"name": nil}, def, nil)
		requireKind(t, err, KindMissingArgument, "", Path{"name"})
	})

	t.Run("explicit null kept", func(t *testing.T) {
		set, err := Construct(map[string]any{"name": "Eve", "nickname": nil}, def, nil)
		require.NoError(t, err)
		require.True(t, set.Has("nickname"))
		require.Nil(t, set.Get("nickname"))
	})

	t.Run("not a map", func(t *testing.T) {
		_, err := Construct([]any{"x"}, def, nil)
		requireKind(t, err, KindInvalidArgumentSet, "", Path{})
	})
}

type inputKey string

func TestConstruct_NamedKeyMap(t *testing.T) {
	def := schema.NewArgumentSet("Query").
		AddArgument(schema.NewArgument("page", "integer"))
	mustBuild(t, def)

	set, err := Construct(map[inputKey]string{"page": "4"}, def, nil)
	require.NoError(t, err)
	require.Equal(t, int64(4), set.Get("page"))
}

func TestConstruct_ScalarIssues(t *testing.T) {
	positive := schema.NewScalar("positive").
		SetParse(schema.IntegerScalar.Parse).
		SetValidator(func(v any) bool { n, ok := v.(int64); return ok && n > 0 })
	def := schema.NewArgumentSet("Numbers").
		AddArgument(schema.NewArgument("count", "integer")).
		AddArgument(schema.NewArgument("size", positive)).
		AddArgument(schema.NewArgument("when", "date"))
	mustBuild(t, def)

	tests := []struct {
		name  string
		input map[string]any
		issue Issue
		path  Path
	}{
		{"parse error", map[string]any{"count": "many"}, IssueParseError, Path{"count"}},
		{"invalid scalar", map[string]any{"size": -1}, IssueInvalidScalar, Path{"size"}},
		{"bad date", map[string]any{"when": "tomorrow"}, IssueParseError, Path{"when"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Construct(tt.input, def, nil)
			requireKind(t, err, KindInvalidArgument, tt.issue, tt.path)
		})
	}

	t.Run("parse error message", func(t *testing.T) {
		_, err := Construct(map[string]any{"count": "many"}, def, nil)
		e := requireKind(t, err, KindInvalidArgument, IssueParseError, Path{"count"})
		require.Equal(t, []string{"Integer must be provided as an integer or a string only containing digits"}, e.Errors)
		var perr *schema.ParseError
		require.ErrorAs(t, err, &perr)
	})

	t.Run("parsed values", func(t *testing.T) {
		set, err := Construct(map[string]any{"count": "12", "size": 3, "when": "2024-05-01"}, def, nil)
		require.NoError(t, err)
		require.Equal(t, int64(12), set.Get("count"))
		require.Equal(t, int64(3), set.Get("size"))
		require.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), set.Get("when"))
	})
}

func TestConstruct_Arrays(t *testing.T) {
	def := schema.NewArgumentSet("Batch").
		AddArgument(schema.NewArgument("ids", schema.ArrayOf("integer")))
	mustBuild(t, def)

	t.Run("non array", func(t *testing.T) {
		for _, input := range []any{"1,2", 7, map[string]any{"a": 1}} {
			_, err := Construct(map[string]any{"ids": input}, def, nil)
			requireKind(t, err, KindInvalidArgument, IssueArrayExpected, Path{"ids"})
		}
	})

	t.Run("failing element carries index", func(t *testing.T) {
		_, err := Construct(map[string]any{"ids": []any{1, "2", "x"}}, def, nil)
		e := requireKind(t, err, KindInvalidArgument, IssueParseError, Path{"ids", 2})
		require.Equal(t, 2, e.Index)
	})

	t.Run("typed slice", func(t *testing.T) {
		set, err := Construct(map[string]any{"ids": []int{5, 6}}, def, nil)
		require.NoError(t, err)
		require.Equal(t, []any{int64(5), int64(6)}, set.Get("ids"))
	})
}

func TestConstruct_NestedAndEnum(t *testing.T) {
	status := schema.NewEnum("Status").AddValue("active", "").AddValue("inactive", "")
	address := schema.NewArgumentSet("AddressInput").
		AddArgument(schema.NewArgument("city", "string").SetRequired(true)).
		AddArgument(schema.NewArgument("zip", "string"))
	def := schema.NewArgumentSet("UserInput").
		AddArgument(schema.NewArgument("status", status)).
		AddArgument(schema.NewArgument("address", address)).
		AddArgument(schema.NewArgument("previous", schema.ArrayOf(address)))
	mustBuild(t, def)

	t.Run("nested set", func(t *testing.T) {
		set, err := Construct(map[string]any{
			"status":  "active",
			"address": map[string]any{"city": "Leeds"},
		}, def, nil)
		require.NoError(t, err)
		require.Equal(t, "Leeds", set.Dig("address", "city"))
		require.Nil(t, set.Dig("address", "zip"))
		require.Nil(t, set.Dig("status", "anything"))
		nested := set.Get("address").(*ArgumentSet)
		require.Equal(t, Path{"address"}, nested.Path())
		require.Same(t, address, nested.Definition())
	})

	t.Run("object expected", func(t *testing.T) {
		_, err := Construct(map[string]any{"address": "Leeds"}, def, nil)
		requireKind(t, err, KindInvalidArgument, IssueObjectExpected, Path{"address"})
	})

	t.Run("nested missing carries full path", func(t *testing.T) {
		_, err := Construct(map[string]any{
			"previous": []any{map[string]any{"city": "York"}, map[string]any{"zip": "LS1"}},
		}, def, nil)
		requireKind(t, err, KindMissingArgument, "", Path{"previous", 1, "city"})
	})

	t.Run("invalid enum", func(t *testing.T) {
		for _, v := range []any{"suspended", 1} {
			_, err := Construct(map[string]any{"status": v}, def, nil)
			requireKind(t, err, KindInvalidArgument, IssueInvalidEnumValue, Path{"status"})
		}
	})

	t.Run("to map flattens", func(t *testing.T) {
		set, err := Construct(map[string]any{
			"previous": []any{map[string]any{"city": "York"}},
		}, def, nil)
		require.NoError(t, err)
		want := map[string]any{"previous": []any{map[string]any{"city": "York"}}}
		if diff := cmp.Diff(want, set.ToMap()); diff != "" {
			t.Fatalf("ToMap mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestConstruct_Validations(t *testing.T) {
	def := schema.NewArgumentSet("Range").
		AddArgument(schema.NewArgument("limit", "integer").
			AddValidation("must be positive", func(v any) bool { return v.(int64) > 0 }).
			AddValidation("must be at most 100", func(v any) bool { return v.(int64) <= 100 }).
			AddValidation("must be even", func(v any) bool { return v.(int64)%2 == 0 }))
	mustBuild(t, def)

	_, err := Construct(map[string]any{"limit": 101}, def, nil)
	e := requireKind(t, err, KindInvalidArgument, IssueValidationErrors, Path{"limit"})
	require.Equal(t, []string{"must be at most 100", "must be even"}, e.Errors)
	require.Contains(t, err.Error(), "must be at most 100, must be even")

	set, err := Construct(map[string]any{"limit": nil}, def, nil)
	require.NoError(t, err)
	require.True(t, set.Has("limit"))
}

func TestConstruct_RouteAndConditions(t *testing.T) {
	lookup := schema.NewLookupArgumentSet("UserLookup").
		AddArgument(schema.NewArgument("id", "integer")).
		AddArgument(schema.NewArgument("username", "string"))
	def := schema.NewArgumentSet("Request").
		AddArgument(schema.NewArgument("user", lookup).SetRequired(true)).
		AddArgument(schema.NewArgument("page", "integer").SetDefault(1)).
		AddArgument(schema.NewArgument("admin_note", "string").
			SetCondition(func(r *schema.Request) bool { return r != nil && r.Identity == "admin" }))
	mustBuild(t, def)

	req := &schema.Request{Route: map[string]string{"user": "42", "page": "3"}}

	t.Run("route wraps argument set", func(t *testing.T) {
		set, err := Construct(map[string]any{"admin_note": "ignored"}, def, req)
		require.NoError(t, err)
		require.Equal(t, int64(42), set.Dig("user", "id"))
		require.Equal(t, int64(3), set.Get("page"))
		require.False(t, set.Has("admin_note"))
	})

	t.Run("input wins over route", func(t *testing.T) {
		set, err := Construct(map[string]any{"user": map[string]any{"username": "adam"}, "page": 9}, def, req)
		require.NoError(t, err)
		require.Equal(t, "adam", set.Dig("user", "username"))
		require.Equal(t, int64(9), set.Get("page"))
	})

	t.Run("condition holds", func(t *testing.T) {
		admin := &schema.Request{Identity: "admin"}
		set, err := Construct(map[string]any{"user": map[string]any{"id": 1}, "admin_note": "hi"}, def, admin)
		require.NoError(t, err)
		require.Equal(t, "hi", set.Get("admin_note"))
	})
}

func TestConstruct_Lookup(t *testing.T) {
	calls := 0
	lookup := schema.NewLookupArgumentSet("UserLookup").
		AddArgument(schema.NewArgument("id", "integer")).
		AddArgument(schema.NewArgument("username", "string")).
		SetResolver(func(r *schema.Request, key string, value any) (any, error) {
			calls++
			return key + "=" + r.Values["prefix"].(string) + value.(string), nil
		})
	def := schema.NewArgumentSet("Wrapper").
		AddArgument(schema.NewArgument("user", lookup))
	mustBuild(t, def)

	t.Run("exactly one", func(t *testing.T) {
		set, err := Construct(map[string]any{"username": "adam"}, lookup, &schema.Request{Values: map[string]any{"prefix": "@"}})
		require.NoError(t, err)
		key, value, ok := set.LookupKey()
		require.True(t, ok)
		require.Equal(t, "username", key)
		require.Equal(t, "adam", value)

		got, err := set.Resolve(t.Context())
		require.NoError(t, err)
		require.Equal(t, "username=@adam", got)
		_, _ = set.Resolve(t.Context())
		require.Equal(t, 1, calls)
	})

	t.Run("none", func(t *testing.T) {
		_, err := Construct(map[string]any{}, lookup, nil)
		requireKind(t, err, KindInvalidArgument, IssueMissingLookupValue, Path{})
		_, err = Construct(map[string]any{"user": map[string]any{"id": nil}}, def, nil)
		requireKind(t, err, KindInvalidArgument, IssueMissingLookupValue, Path{"user"})
	})

	t.Run("ambiguous", func(t *testing.T) {
		_, err := Construct(map[string]any{"user": map[string]any{"id": 1, "username": "adam"}}, def, nil)
		requireKind(t, err, KindInvalidArgument, IssueAmbiguousLookupValues, Path{"user"})
	})

	t.Run("not a lookup set", func(t *testing.T) {
		set, err := Construct(nil, def, nil)
		require.NoError(t, err)
		require.True(t, set.Empty())
		_, err = set.Resolve(t.Context())
		require.ErrorIs(t, err, ErrNotLookup)
	})
}

func TestArgumentSet_Decode(t *testing.T) {
	address := schema.NewArgumentSet("AddressInput").
		AddArgument(schema.NewArgument("city", "string"))
	def := schema.NewArgumentSet("Signup").
		AddArgument(schema.NewArgument("name", "string")).
		AddArgument(schema.NewArgument("age", "integer")).
		AddArgument(schema.NewArgument("born", "date")).
		AddArgument(schema.NewArgument("address", address))
	mustBuild(t, def)

	set, err := Construct(map[string]any{
		"name":    "Adam",
		"age":     "33",
		"born":    "1990-10-01",
		"address": map[string]any{"city": "Leeds"},
	}, def, nil)
	require.NoError(t, err)

	var out struct {
		Name    string    `arg:"name"`
		Age     int       `arg:"age"`
		Born    time.Time `arg:"born"`
		Address struct {
			City string `arg:"city"`
		} `arg:"address"`
	}
	require.NoError(t, set.Decode(&out))
	require.Equal(t, "Adam", out.Name)
	require.Equal(t, 33, out.Age)
	require.Equal(t, 1990, out.Born.Year())
	require.Equal(t, "Leeds", out.Address.City)
}
