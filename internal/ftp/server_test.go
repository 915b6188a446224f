package ftp

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/telebroad/dockftp/internal/config"
)

// testServer starts a Server on an ephemeral loopback port and returns its
// address and the root it serves; the server is closed by t.Cleanup.
func testServer(t *testing.T) (addr string, root string) {
	t.Helper()
	root = t.TempDir()

	configDir := t.TempDir()
	configPath := filepath.Join(configDir, "config.json")
	body := fmt.Sprintf(`{
		"address": "127.0.0.1:0",
		"root": %q,
		"users": [{"name": "alice", "password": "s3cret", "permissions": "All"}]
	}`, root)
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o644))

	cfg, err := config.Load(configPath)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	srv := New(cfg, logger)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv.listener = l

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go srv.serveConn(conn)
		}
	}()

	t.Cleanup(func() { srv.Close() })
	return l.Addr().String(), root
}

// ftpClient is a thin line-oriented control-connection helper for tests.
type ftpClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *ftpClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	c := &ftpClient{t: t, conn: conn, r: bufio.NewReader(conn)}
	c.readLine() // banner
	return c
}

func (c *ftpClient) readLine() string {
	c.t.Helper()
	line, err := c.r.ReadString('\n')
	require.NoError(c.t, err)
	return strings.TrimRight(line, "\r\n")
}

func (c *ftpClient) cmd(format string, args ...any) string {
	c.t.Helper()
	line := fmt.Sprintf(format, args...)
	_, err := fmt.Fprintf(c.conn, "%s\r\n", line)
	require.NoError(c.t, err)
	return c.readLine()
}

func (c *ftpClient) close() {
	c.conn.Close()
}

func TestLoginFailureUnknownUser(t *testing.T) {
	addr, _ := testServer(t)
	c := dial(t, addr)
	defer c.close()

	reply := c.cmd("USER bob")
	require.True(t, strings.HasPrefix(reply, "530"), "got %q", reply)
}

func TestLoginFailureWrongPassword(t *testing.T) {
	addr, _ := testServer(t)
	c := dial(t, addr)
	defer c.close()

	reply := c.cmd("USER alice")
	require.True(t, strings.HasPrefix(reply, "331"), "got %q", reply)

	reply = c.cmd("PASS wrong")
	require.True(t, strings.HasPrefix(reply, "530"), "got %q", reply)
}

func TestSuccessfulLoginAndNavigation(t *testing.T) {
	addr, root := testServer(t)
	require.NoError(t, os.Mkdir(filepath.Join(root, "incoming"), 0o755))

	c := dial(t, addr)
	defer c.close()

	require.True(t, strings.HasPrefix(c.cmd("USER alice"), "331"))
	require.True(t, strings.HasPrefix(c.cmd("PASS s3cret"), "230"))

	reply := c.cmd("PWD")
	require.True(t, strings.HasPrefix(reply, "257"))
	require.Contains(t, reply, `"/"`)

	require.True(t, strings.HasPrefix(c.cmd("CWD incoming"), "250"))

	reply = c.cmd("PWD")
	require.Contains(t, reply, `"/incoming"`)

	require.True(t, strings.HasPrefix(c.cmd("CDUP"), "250"))
	reply = c.cmd("PWD")
	require.Contains(t, reply, `"/"`)

	require.True(t, strings.HasPrefix(c.cmd("QUIT"), "221"))
}

func TestPassiveListOfEmptyDirectory(t *testing.T) {
	addr, _ := testServer(t)
	c := dial(t, addr)
	defer c.close()

	require.True(t, strings.HasPrefix(c.cmd("USER alice"), "331"))
	require.True(t, strings.HasPrefix(c.cmd("PASS s3cret"), "230"))

	pasvReply := c.cmd("PASV")
	require.True(t, strings.HasPrefix(pasvReply, "227"))
	port := parsePASVPort(t, pasvReply)

	dataConn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 2*time.Second)
	require.NoError(t, err)
	defer dataConn.Close()

	reply := c.cmd("LIST")
	require.True(t, strings.HasPrefix(reply, "150"))

	buf := make([]byte, 512)
	dataConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _ := dataConn.Read(buf)
	require.Equal(t, 0, n, "expected no entries for an empty directory")

	reply = c.readLine()
	require.True(t, strings.HasPrefix(reply, "226"))
}

func TestRetrieveWithRestartOffset(t *testing.T) {
	addr, root := testServer(t)
	content := "0123456789"
	require.NoError(t, os.WriteFile(filepath.Join(root, "data.txt"), []byte(content), 0o644))

	c := dial(t, addr)
	defer c.close()

	require.True(t, strings.HasPrefix(c.cmd("USER alice"), "331"))
	require.True(t, strings.HasPrefix(c.cmd("PASS s3cret"), "230"))

	pasvReply := c.cmd("PASV")
	port := parsePASVPort(t, pasvReply)

	require.True(t, strings.HasPrefix(c.cmd("REST 5"), "350"))

	dataConn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 2*time.Second)
	require.NoError(t, err)
	defer dataConn.Close()

	reply := c.cmd("RETR data.txt")
	require.True(t, strings.HasPrefix(reply, "150"), "got %q", reply)

	buf := make([]byte, 64)
	dataConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _ := dataConn.Read(buf)
	require.Equal(t, "56789", string(buf[:n]))

	reply = c.readLine()
	require.True(t, strings.HasPrefix(reply, "226"))

	require.True(t, strings.HasPrefix(c.cmd("QUIT"), "221"))
}

// parsePASVPort extracts the data port from a 227 reply of the form
// "227 Entering Passive Mode (h1,h2,h3,h4,p1,p2)".
func parsePASVPort(t *testing.T, reply string) int {
	t.Helper()
	open := strings.IndexByte(reply, '(')
	closeIdx := strings.IndexByte(reply, ')')
	require.True(t, open >= 0 && closeIdx > open, "malformed PASV reply: %q", reply)

	parts := strings.Split(reply[open+1:closeIdx], ",")
	require.Len(t, parts, 6)

	var p1, p2 int
	_, err := fmt.Sscanf(parts[4], "%d", &p1)
	require.NoError(t, err)
	_, err = fmt.Sscanf(parts[5], "%d", &p2)
	require.NoError(t, err)
	return p1*256 + p2
}
