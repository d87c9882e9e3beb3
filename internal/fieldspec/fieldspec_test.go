package fieldspec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	schema "github.com/hanpama/apiform/internal/schema"
)

type fixture struct {
	id, name, secret, email *schema.Field
	address, city, zip      *schema.Field
	friends, friendName     *schema.Field
	friendEmail             *schema.Field
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		city:        schema.NewField("city", "string"),
		zip:         schema.NewField("zip", "string").SetInclude(false),
		friendName:  schema.NewField("name", "string"),
		friendEmail: schema.NewField("email", "string"),
	}
	address := schema.NewObject("Address").AddField(f.city).AddField(f.zip)
	friend := schema.NewObject("Friend").AddField(f.friendName).AddField(f.friendEmail)
	f.id = schema.NewField("id", "integer")
	f.name = schema.NewField("name", "string")
	f.secret = schema.NewField("secret", "string").SetInclude(false)
	f.email = schema.NewField("email", "string").SetIncludeWhen(func(r *schema.Request) bool {
		return r != nil && r.Identity != nil
	})
	f.address = schema.NewField("address", address)
	f.friends = schema.NewField("friends", schema.ArrayOf(friend)).SetIncludeSpec("name")

	fs := schema.NewFieldSet(f.id, f.name, f.secret, f.email, f.address, f.friends)
	_, err := schema.NewRegistry().AddFieldSet("user", fs).Build()
	require.NoError(t, err)
	return f
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"id,",
		",id",
		"address[city",
		"address[]",
		"id]",
		"a b",
		"-",
		"id,,name",
		"na$me",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			var syntaxErr *SyntaxError
			require.ErrorAs(t, err, &syntaxErr)
			require.Equal(t, input, syntaxErr.Input)
		})
	}
}

func TestParseString(t *testing.T) {
	tests := []struct{ input, want string }{
		{"", "*"},
		{"id", "id"},
		{" id , name ", "id,name"},
		{"*,-secret", "*,-secret"},
		{"-secret", "*,-secret"},
		{"id,address[city,zip]", "id,address[city,zip]"},
		{"friends[*,-email]", "friends[*,-email]"},
		{"id,-id", "*,-id"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			spec, err := Parse(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.want, spec.String())
		})
	}
}

func TestAllows(t *testing.T) {
	f := newFixture(t)
	anon := &schema.Request{}
	authed := &schema.Request{Identity: "u1"}

	tests := []struct {
		name string
		spec string
		req  *schema.Request
		path []*schema.Field
		want bool
	}{
		{"default includes plain field", "", anon, []*schema.Field{f.id}, true},
		{"default skips excluded field", "", anon, []*schema.Field{f.secret}, false},
		{"default consults request", "", anon, []*schema.Field{f.email}, false},
		{"default consults request when authed", "", authed, []*schema.Field{f.email}, true},
		{"nil request", "", nil, []*schema.Field{f.email}, false},
		{"default nested", "", anon, []*schema.Field{f.address, f.city}, true},
		{"default nested excluded", "", anon, []*schema.Field{f.address, f.zip}, false},
		{"default include spec", "", anon, []*schema.Field{f.friends, f.friendName}, true},
		{"default include spec omits", "", anon, []*schema.Field{f.friends, f.friendEmail}, false},
		{"explicit name", "secret", anon, []*schema.Field{f.secret}, true},
		{"explicit name drops others", "secret", anon, []*schema.Field{f.id}, false},
		{"explicit overrides request", "email", anon, []*schema.Field{f.email}, true},
		{"exclusion", "*,-id", anon, []*schema.Field{f.id}, false},
		{"exclusion keeps others", "-id", anon, []*schema.Field{f.name}, true},
		{"nested selection", "address[zip]", anon, []*schema.Field{f.address, f.zip}, true},
		{"nested selection drops siblings", "address[zip]", anon, []*schema.Field{f.address, f.city}, false},
		{"bare object uses its default", "address", anon, []*schema.Field{f.address, f.city}, true},
		{"bare object keeps exclusions", "address", anon, []*schema.Field{f.address, f.zip}, false},
		{"nested star", "friends[*]", anon, []*schema.Field{f.friends, f.friendEmail}, true},
		{"unselected parent", "id", anon, []*schema.Field{f.address, f.city}, false},
		{"empty path", "id", anon, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := MustParse(tt.spec)
			require.Equal(t, tt.want, spec.Allows(tt.req, tt.path))
		})
	}
}

func TestSpecIsFieldFilter(t *testing.T) {
	var filter schema.FieldFilter = MustParse("id")
	require.NotNil(t, filter)
}

func TestIncludeSpecParsedAtBuild(t *testing.T) {
	friend := func() *schema.Object {
		return schema.NewObject("Friend").
			AddField(schema.NewField("name", "string")).
			AddField(schema.NewField("email", "string"))
	}

	t.Run("valid spec is cached", func(t *testing.T) {
		friends := schema.NewField("friends", schema.ArrayOf(friend())).SetIncludeSpec("name, -email")
		require.Nil(t, friends.IncludeFilter())
		_, err := schema.NewRegistry().AddFieldSet("user", schema.NewFieldSet(friends)).Build()
		require.NoError(t, err)

		cached, ok := friends.IncludeFilter().(*Spec)
		require.True(t, ok)
		require.Equal(t, "name,-email", cached.String())
		require.Same(t, cached, defaultFor(friends))
	})

	for _, input := range []string{"name,", "name[", "-", "na$me"} {
		t.Run("invalid "+input, func(t *testing.T) {
			friends := schema.NewField("friends", schema.ArrayOf(friend())).SetIncludeSpec(input)
			_, err := schema.NewRegistry().AddFieldSet("user", schema.NewFieldSet(friends)).Build()
			var schemaErr *schema.SchemaError
			require.True(t, errors.As(err, &schemaErr), "expected *schema.SchemaError, got %v", err)
			require.True(t, schemaErr.Has(schema.InvalidIncludeSpec))
			require.Len(t, schemaErr.Violations, 1)
			require.Equal(t, "user", schemaErr.Violations[0].Definition)
			require.Contains(t, schemaErr.Violations[0].Message, `field "friends"`)
		})
	}

	t.Run("object fields", func(t *testing.T) {
		owner := schema.NewObject("Owner").
			AddField(schema.NewField("friends", schema.ArrayOf(friend())).SetIncludeSpec("name]"))
		_, err := schema.NewRegistry(owner).Build()
		var schemaErr *schema.SchemaError
		require.True(t, errors.As(err, &schemaErr))
		require.True(t, schemaErr.Has(schema.InvalidIncludeSpec))
		require.Equal(t, "Owner", schemaErr.Violations[0].Definition)
	})

	t.Run("unbuilt field parses on demand", func(t *testing.T) {
		friends := schema.NewField("friends", schema.ArrayOf(friend())).SetIncludeSpec("email")
		require.Equal(t, "email", defaultFor(friends).String())
		require.Same(t, Default, defaultFor(schema.NewField("plain", "string")))
	})
}
