package reqid

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	ctx, id := NewContext(context.Background())
	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, id, got)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	_, ok = FromContext(context.Background())
	require.False(t, ok, "unexpected id in empty context")
}

func TestWithID(t *testing.T) {
	given := "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	ctx, id := WithID(context.Background(), given)
	require.Equal(t, given, id)
	got, _ := FromContext(ctx)
	require.Equal(t, given, got)

	_, id = WithID(context.Background(), "not-an-id")
	require.NotEqual(t, "not-an-id", id)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
}
