package tracestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecord_AndEvents_PreserveOrder(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "sess-1", KindPromptReceived, "hello"))
	require.NoError(t, s.Record(ctx, "sess-1", KindValueReturned, "world"))

	events, err := s.Events(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, KindPromptReceived, events[0].Kind)
	require.Equal(t, "hello", events[0].Content)
	require.Equal(t, KindValueReturned, events[1].Kind)
	require.Equal(t, "world", events[1].Content)
}

func TestEvents_IsolatedPerSession(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "sess-a", KindError, "boom"))
	require.NoError(t, s.Record(ctx, "sess-b", KindValueReturned, "ok"))

	eventsA, err := s.Events(ctx, "sess-a")
	require.NoError(t, err)
	require.Len(t, eventsA, 1)
	require.Equal(t, KindError, eventsA[0].Kind)

	eventsB, err := s.Events(ctx, "sess-b")
	require.NoError(t, err)
	require.Len(t, eventsB, 1)
}

func TestEvents_UnknownSessionIsEmptyNotError(t *testing.T) {
	s := openTest(t)
	events, err := s.Events(context.Background(), "nonexistent")
	require.NoError(t, err)
	require.Empty(t, events)
}
