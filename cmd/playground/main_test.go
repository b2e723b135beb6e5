package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/playground/pkg/config"
	"github.com/marmos91/playground/pkg/metrics"
	"github.com/marmos91/playground/pkg/remoting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	t.Run("AddressAndPort", func(t *testing.T) {
		opts, err := parseArgs([]string{"localhost", "44444"}, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, options{Address: "localhost", Port: 44444}, opts)
	})

	t.Run("Flags", func(t *testing.T) {
		opts, err := parseArgs([]string{"--config", "/etc/playground.yaml", "--log-level", "debug", "127.0.0.1", "1"}, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, "/etc/playground.yaml", opts.ConfigPath)
		assert.Equal(t, "debug", opts.LogLevel)
		assert.Equal(t, 1, opts.Port)
	})

	t.Run("MissingArguments", func(t *testing.T) {
		for _, args := range [][]string{{}, {"localhost"}} {
			_, err := parseArgs(args, io.Discard)
			assert.ErrorIs(t, err, errUsage)
		}
	})

	t.Run("InvalidPort", func(t *testing.T) {
		for _, port := range []string{"http", "0", "70000", "-1"} {
			_, err := parseArgs([]string{"localhost", "--", port}, io.Discard)
			assert.ErrorIs(t, err, errUsage, "port %q", port)
		}
	})

	t.Run("InvalidLogLevel", func(t *testing.T) {
		_, err := parseArgs([]string{"--log-level", "LOUD", "localhost", "1"}, io.Discard)
		assert.Error(t, err)
	})

	t.Run("UnknownFlag", func(t *testing.T) {
		_, err := parseArgs([]string{"--verbose", "localhost", "1"}, io.Discard)
		assert.Error(t, err)
	})
}

func TestLoadConfig_LogLevelOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: ERROR\n"), 0644))

	cfg, err := loadConfig(options{ConfigPath: path, LogLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestNewPlayground_InvalidPolicy(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Playground.CollisionPolicy = "last-wins"

	_, err := newPlayground(cfg, metrics.NewNoopRouterMetrics())
	assert.Error(t, err)
}

// TestRun drives the agent end to end: the test listens as the host, the
// playground mounts one memory plugin under /MY/PATH and answers requests.
func TestRun(t *testing.T) {
	dir := t.TempDir()

	pluginDir := filepath.Join(dir, "playground", "friendly_user_2")
	require.NoError(t, os.MkdirAll(pluginDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "plugin.yaml"), []byte(`
kind: memory
options:
  catalogs:
    - id: /CATALOG_2
`), 0644))

	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
logging:
  output: `+filepath.Join(dir, "playground.log")+`
remoting:
  dial_timeout: 1s
  max_elapsed_time: 5s
`), 0644))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = listener.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, options{
			ConfigPath: configPath,
			Address:    "127.0.0.1",
			Port:       listener.Addr().(*net.TCPAddr).Port,
		})
	}()

	conn, err := listener.Accept()
	require.NoError(t, err)
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))

	call := func(id int, method string, params ...any) remoting.Response {
		raw := make([]json.RawMessage, len(params))
		for i, p := range params {
			b, err := json.Marshal(p)
			require.NoError(t, err)
			raw[i] = b
		}
		payload, err := json.Marshal(remoting.Request{JSONRPC: "2.0", ID: json.RawMessage(jsonInt(id)), Method: method, Params: raw})
		require.NoError(t, err)
		require.NoError(t, remoting.WriteFrame(conn, payload))

		for {
			frame, err := remoting.ReadFrame(conn)
			require.NoError(t, err)

			var resp remoting.Response
			require.NoError(t, json.Unmarshal(frame, &resp))
			if len(resp.ID) == 0 || string(resp.ID) == "null" {
				continue // log notification
			}
			return resp
		}
	}

	resp := call(1, remoting.MethodSetContext, map[string]any{
		"sourceConfiguration": map[string]any{
			"mount-path":        "/MY/PATH",
			"playground-folder": filepath.Join(dir, "playground"),
		},
	})
	require.Nil(t, resp.Error, "setContext failed: %v", resp.Error)

	resp = call(2, remoting.MethodGetCatalogRegistrations, "/MY/PATH/FRIENDLY_USER_2/")
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{"registrations":[{"path":"/MY/PATH/FRIENDLY_USER_2/CATALOG_2"}]}`, string(resp.Result))

	resp = call(3, remoting.MethodGetCatalog, "/MY/PATH/UNKNOWN/CATALOG")
	require.NotNil(t, resp.Error)
	assert.Equal(t, remoting.CodeServerError, resp.Error.Code)

	// The host going away ends the run without error
	require.NoError(t, conn.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after the host disconnected")
	}
}

func jsonInt(i int) string {
	b, _ := json.Marshal(i)
	return string(b)
}
