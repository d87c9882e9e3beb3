package executor_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	executor "github.com/hanpama/apiform/internal/executor"
	schema "github.com/hanpama/apiform/internal/schema"
)

func build(t *testing.T, owner string, fs *schema.FieldSet, defs ...schema.Definition) {
	t.Helper()
	_, err := schema.NewRegistry(defs...).AddFieldSet(owner, fs).Build()
	require.NoError(t, err)
}

func requireError(t *testing.T, err error, kind executor.Kind, path executor.Path) *executor.Error {
	t.Helper()
	var e *executor.Error
	require.True(t, errors.As(err, &e), "expected *executor.Error, got %v", err)
	require.Equal(t, kind, e.Kind)
	if diff := cmp.Diff(path, e.Path); diff != "" {
		t.Fatalf("error path mismatch (-want +got):\n%s", diff)
	}
	return e
}

// Pattern: Result comparison
func TestSerialize_Nullability(t *testing.T) {
	t.Run("Nullable field", func(t *testing.T) {
		fs := schema.NewFieldSet(
			schema.NewField("id", "integer"),
			schema.NewField("name", "string").SetNull(true),
		)
		build(t, "user", fs)

		got, err := executor.Serialize(map[string]any{"id": 1, "name": nil}, fs, nil, nil)
		require.NoError(t, err)
		want := map[string]any{"id": int64(1), "name": nil}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("Serialize mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Absent non-nullable field", func(t *testing.T) {
		fs := schema.NewFieldSet(
			schema.NewField("id", "integer"),
			schema.NewField("name", "string"),
		)
		build(t, "user", fs)

		_, err := executor.Serialize(map[string]any{"id": 1}, fs, nil, nil)
		e := requireError(t, err, executor.KindNullFieldValue, executor.Path{"name"})
		require.Equal(t, "name", e.Field.Name)
		require.False(t, e.ClientError())
	})

	t.Run("Null regardless of type", func(t *testing.T) {
		obj := schema.NewObject("Thing").AddField(schema.NewField("a", "string"))
		color := schema.NewEnum("Color").AddValue("red", "")
		for _, token := range []any{"string", obj, color, schema.ArrayOf("integer")} {
			fs := schema.NewFieldSet(schema.NewField("v", token))
			build(t, "fs", fs)
			var typedNil *struct{}
			for _, v := range []any{nil, typedNil} {
				_, err := executor.Serialize(map[string]any{"v": v}, fs, nil, executor.Path{"root"})
				requireError(t, err, executor.KindNullFieldValue, executor.Path{"root", "v"})
			}
		}
	})
}

func TestSerialize_Conditions(t *testing.T) {
	hidden := schema.NewField("secret", "string").
		SetCondition(func(source any, r *schema.Request) bool { return false })
	shown := schema.NewField("public", "string").
		SetCondition(func(source any, r *schema.Request) bool { return r != nil && r.Identity != nil })
	fs := schema.NewFieldSet(hidden, shown)
	build(t, "conditions", fs)

	source := map[string]any{"secret": "s", "public": "p"}

	got, err := executor.Serialize(source, fs, nil, nil)
	require.NoError(t, err)
	require.Empty(t, got)
	_, present := got["secret"]
	require.False(t, present)

	got, err = executor.Serialize(source, fs, &schema.Request{Identity: "u"}, nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"public": "p"}, got)
}

func TestSerialize_ObjectConditionsAndNesting(t *testing.T) {
	address := schema.NewObject("Address").
		AddField(schema.NewField("city", "string")).
		AddCondition(func(source any, r *schema.Request) bool {
			return source.(map[string]any)["city"] != "hidden"
		})
	user := schema.NewObject("User").
		AddField(schema.NewField("name", "string")).
		AddField(schema.NewField("address", address)).
		AddField(schema.NewField("history", schema.ArrayOf(address)))
	_, err := schema.NewRegistry(user).Build()
	require.NoError(t, err)

	source := map[string]any{
		"name":    "Adam",
		"address": map[string]any{"city": "hidden"},
		"history": []map[string]any{{"city": "York"}, {"city": "hidden"}, {"city": "Leeds"}},
	}
	got, ok, err := executor.SerializeObject(source, user, nil, nil)
	require.NoError(t, err)
	require.True(t, ok)
	want := map[string]any{
		"name":    "Adam",
		"history": []any{map[string]any{"city": "York"}, map[string]any{"city": "Leeds"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("SerializeObject mismatch (-want +got):\n%s", diff)
	}

	_, ok, err = executor.SerializeObject(map[string]any{"city": "hidden"}, address, nil, nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSerialize_Arrays(t *testing.T) {
	fs := schema.NewFieldSet(
		schema.NewField("ids", "[integer]"),
		schema.NewField("maybe", schema.ArrayOf("string")).SetNull(true),
	)
	build(t, "arrays", fs)

	got, err := executor.Serialize(map[string]any{"ids": []int32{1, 2}, "maybe": []any{"a", nil}}, fs, nil, nil)
	require.NoError(t, err)
	want := map[string]any{"ids": []any{int64(1), int64(2)}, "maybe": []any{"a", nil}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Serialize mismatch (-want +got):\n%s", diff)
	}

	_, err = executor.Serialize(map[string]any{"ids": 5, "maybe": nil}, fs, nil, nil)
	requireError(t, err, executor.KindInvalidArrayValue, executor.Path{"ids"})

	_, err = executor.Serialize(map[string]any{"ids": []any{1, nil}}, fs, nil, nil)
	e := requireError(t, err, executor.KindNullFieldValue, executor.Path{"ids", 1})
	require.Equal(t, 1, e.Index)

	_, err = executor.Serialize(map[string]any{"ids": []any{1, "2"}}, fs, nil, nil)
	requireError(t, err, executor.KindInvalidScalarValue, executor.Path{"ids", 1})
}

func TestSerialize_Leaves(t *testing.T) {
	status := schema.NewEnum("Status").AddValue("active", "").AddValue("inactive", "")
	fs := schema.NewFieldSet(
		schema.NewField("status", status),
		schema.NewField("joined", "date"),
		schema.NewField("score", "decimal"),
	)
	build(t, "leaves", fs)

	type statusName string
	name := "active"
	got, err := executor.Serialize(map[string]any{
		"status": statusName(name),
		"joined": time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC),
		"score":  &[]float64{1.5}[0],
	}, fs, nil, nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"status": "active", "joined": "2020-03-04", "score": 1.5}, got)

	_, err = executor.Serialize(map[string]any{"status": "suspended", "joined": time.Now(), "score": 1}, fs, nil, nil)
	e := requireError(t, err, executor.KindInvalidEnumOption, executor.Path{"status"})
	var optErr *schema.InvalidEnumOptionError
	require.ErrorAs(t, e, &optErr)

	_, err = executor.Serialize(map[string]any{"status": "active", "joined": "2020-03-04", "score": 1}, fs, nil, nil)
	e = requireError(t, err, executor.KindInvalidScalarValue, executor.Path{"joined"})
	var scalarErr *schema.InvalidScalarValueError
	require.ErrorAs(t, e, &scalarErr)
}

type cat struct{ Name string }
type dog struct{ Name string }

func TestSerialize_Polymorph(t *testing.T) {
	catObj := schema.NewObject("Cat").AddField(schema.NewField("name", "string"))
	dogObj := schema.NewObject("Dog").AddField(schema.NewField("name", "string"))
	pet := schema.NewPolymorph("Pet").
		AddOption("cat", catObj, func(v any) bool { _, ok := v.(cat); return ok }).
		AddOption("dog", dogObj, func(v any) bool { _, ok := v.(dog); return ok }).
		AddOption("any", catObj, func(v any) bool { return true })
	strict := schema.NewPolymorph("Strict").
		AddOption("text", "string", func(v any) bool { _, ok := v.(string); return ok })
	fs := schema.NewFieldSet(
		schema.NewField("pets", schema.ArrayOf(pet)),
		schema.NewField("label", strict).SetNull(true),
	)
	build(t, "polymorph", fs)

	got, err := executor.Serialize(map[string]any{
		"pets":  []any{cat{"Tom"}, dog{"Rex"}, map[string]any{"name": "Ghost"}},
		"label": "x",
	}, fs, nil, nil)
	require.NoError(t, err)
	want := map[string]any{
		"pets": []any{
			map[string]any{"cat": map[string]any{"name": "Tom"}},
			map[string]any{"dog": map[string]any{"name": "Rex"}},
			map[string]any{"any": map[string]any{"name": "Ghost"}},
		},
		"label": map[string]any{"text": "x"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Serialize mismatch (-want +got):\n%s", diff)
	}

	_, err = executor.Serialize(map[string]any{"pets": []any{}, "label": 3}, fs, nil, nil)
	requireError(t, err, executor.KindInvalidPolymorphValue, executor.Path{"label"})
}

func TestSerialize_Backends(t *testing.T) {
	fs := schema.NewFieldSet(
		schema.NewField("full_name", "string").SetBackend(func(source any, r *schema.Request) (any, error) {
			m := source.(map[string]any)
			return fmt.Sprintf("%s %s", m["first"], m["last"]), nil
		}),
		schema.NewField("surname", "string").SetBackendKey("last"),
	)
	build(t, "backends", fs)

	got, err := executor.Serialize(map[string]any{"first": "Ada", "last": "Lovelace"}, fs, nil, nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"full_name": "Ada Lovelace", "surname": "Lovelace"}, got)

	boom := errors.New("boom")
	failing := schema.NewFieldSet(schema.NewField("x", "string").SetBackend(func(any, *schema.Request) (any, error) {
		return nil, boom
	}))
	build(t, "failing", failing)
	_, err = executor.Serialize(nil, failing, nil, executor.Path{"data"})
	requireError(t, err, executor.KindBackendError, executor.Path{"data", "x"})
	require.ErrorIs(t, err, boom)
}

type onlyFilter map[string]bool

func (f onlyFilter) Allows(r *schema.Request, path []*schema.Field) bool {
	key := ""
	for i, p := range path {
		if i > 0 {
			key += "."
		}
		key += p.Name
	}
	return f[key]
}

func TestSerialize_FieldFilter(t *testing.T) {
	address := schema.NewObject("Address").
		AddField(schema.NewField("city", "string")).
		AddField(schema.NewField("zip", "string"))
	fs := schema.NewFieldSet(
		schema.NewField("id", "integer"),
		schema.NewField("secret", "string"),
		schema.NewField("address", address),
	)
	build(t, "filtered", fs, address)

	req := &schema.Request{Fields: onlyFilter{"id": true, "address": true, "address.city": true}}
	got, err := executor.Serialize(map[string]any{
		"id":      7,
		"secret":  "x",
		"address": map[string]any{"city": "Leeds", "zip": "LS1"},
	}, fs, req, nil)
	require.NoError(t, err)
	want := map[string]any{"id": int64(7), "address": map[string]any{"city": "Leeds"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Serialize mismatch (-want +got):\n%s", diff)
	}
}
