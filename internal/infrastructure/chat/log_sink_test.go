package chat

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"command-server/internal/domain/user"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(otelinfra.NewLogger(&buf, otelinfra.LogLevelInfo))

	require.NoError(t, s.SendMessage(context.Background(), "hello", true))
	require.NoError(t, s.Whisper(context.Background(), user.PlatformTwitch, "bob", "psst", false))

	assert.Equal(t, []Sent{
		{Text: "hello", AsStreamer: true},
		{Platform: user.PlatformTwitch, To: "bob", Text: "psst"},
	}, s.Recent())
	assert.Contains(t, buf.String(), `"text":"hello"`)
	assert.Contains(t, buf.String(), `"to":"bob"`)
}

func TestLogSink_RecentLimit(t *testing.T) {
	s := NewLogSink(otelinfra.NewNopLogger())
	for i := range recentLimit + 5 {
		require.NoError(t, s.SendMessage(context.Background(), fmt.Sprint(i), false))
	}

	recent := s.Recent()
	require.Len(t, recent, recentLimit)
	assert.Equal(t, "5", recent[0].Text)
	assert.Equal(t, fmt.Sprint(recentLimit+4), recent[len(recent)-1].Text)
}
