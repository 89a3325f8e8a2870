package nats

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/emergency-notifier/pkg/logger"
)

func TestNatsBrokerRoundTrip(t *testing.T) {
	url := os.Getenv("NOTIFIER_TEST_NATS_URL")
	if url == "" {
		t.Skip("NOTIFIER_TEST_NATS_URL not set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := NewNatsBroker(Config{URL: url, Name: "notifier-test"}, logger.Nop())
	require.NoError(t, err)
	defer b.Close()

	msgs, err := b.Subscribe(ctx, "test.roundtrip")
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, "test.roundtrip", map[string]int{"n": 1}))

	select {
	case got := <-msgs:
		assert.JSONEq(t, `{"n":1}`, string(got))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	cancel()
	_, open := <-msgs
	assert.False(t, open)
}
