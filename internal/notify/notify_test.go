package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewWithoutURLIsNop(t *testing.T) {
	p, err := New(DefaultConfig(), nil)
	require.NoError(t, err)
	assert.IsType(t, Nop{}, p)
	assert.NoError(t, p.Publish(context.Background(), EventIngestCompleted, nil))
	assert.NoError(t, p.Close())
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "trackqa.ingest.completed", Subject("trackqa", EventIngestCompleted))
	assert.Equal(t, "answer.completed", Subject("", EventAnswerCompleted))
}

func TestEncode(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	body, err := Encode(EventAnswerCompleted, map[string]any{"question": "how far?", "answer_length": 42}, at)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "answer.completed", got["event"])
	assert.Equal(t, "2026-01-02T02:04:05Z", got["timestamp"])
	assert.Equal(t, map[string]any{"question": "how far?", "answer_length": float64(42)}, got["data"])

	_, err = Encode("bad", func() {}, at)
	assert.Error(t, err)
}

func TestConnectFailure(t *testing.T) {
	_, err := New(Config{URL: "nats://127.0.0.1:1"}, nil)
	assert.ErrorContains(t, err, "connect to NATS")
}

type failingPublisher struct{ Nop }

func (failingPublisher) Publish(context.Context, string, any) error {
	return errors.New("no route")
}

func TestLoggedSwallowsErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := Logged(failingPublisher{}, zap.New(core))

	assert.NoError(t, p.Publish(context.Background(), EventIngestCompleted, struct{}{}))
	require.Equal(t, 1, logs.FilterMessage("Error publishing event").Len())
	assert.Equal(t, EventIngestCompleted, logs.All()[0].ContextMap()["event"])
}
