package control

import (
	"bufio"
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/controlauth"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/image"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/lifecycle"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/plugins"
)

func startTestServer(t *testing.T, gate *controlauth.Gate) (net.Conn, context.CancelFunc) {
	t.Helper()
	logger := zerolog.Nop()
	tables := image.New()
	host := plugins.NewHost(tables, &logger)
	manager := lifecycle.NewManager(t.TempDir(), "./plugins.conf", tables, host, nil, &logger)

	socketPath := filepath.Join(t.TempDir(), "control.sock")
	srv := New(socketPath, 1, manager, gate, nil, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	go func() {
		for {
			if c, err := net.Dial("unix", socketPath); err == nil {
				c.Close()
				close(ready)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()
	go srv.Run(ctx)

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("control socket never became ready")
	}

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)

	t.Cleanup(func() { cancel(); conn.Close() })
	return conn, cancel
}

func sendCommand(t *testing.T, conn net.Conn, command string) string {
	t.Helper()
	_, err := conn.Write([]byte(command + "\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	return line[:len(line)-1]
}

func TestPingRespondsOK(t *testing.T) {
	conn, _ := startTestServer(t, nil)
	assert.Equal(t, "PING:OK", sendCommand(t, conn, "PING"))
}

func TestStatusReportsEmptyBeforeStart(t *testing.T) {
	conn, _ := startTestServer(t, nil)
	assert.Equal(t, "STATUS:EMPTY", sendCommand(t, conn, "STATUS"))
}

func TestUnknownCommandReportsCommandError(t *testing.T) {
	conn, _ := startTestServer(t, nil)
	assert.Equal(t, "COMMAND:ERROR", sendCommand(t, conn, "NONSENSE"))
}

func TestStatsBeforeAnyCyclesHasNullTimingFields(t *testing.T) {
	conn, _ := startTestServer(t, nil)
	resp := sendCommand(t, conn, "STATS")
	assert.Contains(t, resp, `"scan_time":null`)
	assert.Contains(t, resp, `"scan_count":0`)
}

func TestStartWithoutArtifactReturnsError(t *testing.T) {
	conn, _ := startTestServer(t, nil)
	assert.Equal(t, "START:ERROR", sendCommand(t, conn, "START"))
}

func TestDestructiveCommandsRequireAuthWhenGateConfigured(t *testing.T) {
	gate := controlauth.NewGate("test-signing-key", "")
	conn, _ := startTestServer(t, gate)

	assert.Equal(t, "START:ERROR", sendCommand(t, conn, "START"))
}

func TestDebugParsingErrorOnInvalidHex(t *testing.T) {
	conn, _ := startTestServer(t, nil)
	assert.Equal(t, "DEBUG:ERROR_PARSING", sendCommand(t, conn, "DEBUG:zz"))
}
