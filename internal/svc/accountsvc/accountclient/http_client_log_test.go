package accountclient

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The editor reports transport failures; the client keeps them at debug level.
func TestHTTPClient_UpdateUsername_LogsFailureAtDebug(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	}))
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(HTTPClientConfig{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	var buf bytes.Buffer

	//nolint:exhaustruct
	client.log = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err = client.UpdateUsername(context.Background(), "alice02")
	require.Error(t, err)

	var failures []map[string]any

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		assert.Equal(t, "DEBUG", entry["level"], line)

		if entry["msg"] == "update username request failed" {
			failures = append(failures, entry)
		}
	}

	assert.Len(t, failures, 1)
}
