package notify

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getNATSURL returns the NATS URL for testing, or skips the test.
func getNATSURL(t *testing.T) string {
	url := os.Getenv("NATS_URL")
	if url == "" {
		url = nats.DefaultURL
	}
	if testing.Short() {
		t.Skip("skipping NATS test in short mode")
	}

	conn, err := nats.Connect(url, nats.Timeout(time.Second), nats.MaxReconnects(0))
	if err != nil {
		t.Skipf("skipping: NATS not available at %s: %v", url, err)
	}
	conn.Close()
	return url
}

func TestNewNATS_ConnectFailure(t *testing.T) {
	cfg := DefaultNATSConfig()
	cfg.URL = "nats://127.0.0.1:1"
	cfg.ConnectTimeout = 200 * time.Millisecond

	_, err := NewNATS(cfg, nil)
	assert.Error(t, err)
}

func TestNATS_Publish(t *testing.T) {
	url := getNATSURL(t)

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	defer sub.Close()

	msgs := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe("test.tasksync.notify", msgs)
	require.NoError(t, err)
	defer s.Unsubscribe()
	require.NoError(t, sub.Flush())

	cfg := DefaultNATSConfig()
	cfg.URL = url
	cfg.Subject = "test.tasksync.notify"
	pub, err := NewNATS(cfg, nil)
	require.NoError(t, err)
	defer pub.Close()

	pub.Notify(Failure("not allowed"))
	require.NoError(t, pub.conn.Flush())

	select {
	case msg := <-msgs:
		var got map[string]any
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, "not allowed", got["message"])
		assert.Equal(t, "negative", got["color"])
		assert.Equal(t, "top", got["position"])
		assert.Equal(t, float64(5000), got["timeout"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}
