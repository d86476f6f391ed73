package telnet

import (
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// pipeConn returns a server-side Conn and the raw client end of an in-memory pipe.
func pipeConn(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	conn := NewConn(server, "conn-1", 0, 0)
	t.Cleanup(func() {
		_ = conn.Close()
		_ = client.Close()
	})
	return conn, client
}

func send(client net.Conn, data []byte) {
	go func() { _, _ = client.Write(data) }()
}

func TestConn_ID(t *testing.T) {
	conn, _ := pipeConn(t)
	assert.Equal(t, "conn-1", conn.ID())
}

func TestReadLine_Plain(t *testing.T) {
	conn, client := pipeConn(t)
	send(client, []byte("hello world\r\n"))

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "hello world", line)
}

func TestReadLine_FiltersNegotiation(t *testing.T) {
	conn, client := pipeConn(t)
	send(client, []byte{IAC, WILL, OptEcho, 'h', IAC, DO, OptLinemode, 'i', IAC, NOP, '\n'})

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "hi", line)
}

func TestReadLine_SkipsSubNegotiation(t *testing.T) {
	conn, client := pipeConn(t)
	send(client, []byte{IAC, SB, 24, 0, 'x', 't', 'e', 'r', 'm', IAC, SE, 'z', '\r', '\n'})

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "z", line)
}

func TestReadLine_LineEndings(t *testing.T) {
	conn, client := pipeConn(t)
	send(client, []byte("one\rtwo\nthree\r\n"))

	for _, want := range []string{"one", "two", "three"} {
		line, err := conn.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, want, line)
	}
}

func TestReadLine_DropsControlCharacters(t *testing.T) {
	conn, client := pipeConn(t)
	send(client, []byte("a\x07b\tc\x1b\n"))

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "ab\tc", line)
}

func TestReadLine_KeepsUTF8(t *testing.T) {
	conn, client := pipeConn(t)
	send(client, []byte("大厅 café\r\n"))

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "大厅 café", line)
}

func TestReadLine_TruncatesLongLines(t *testing.T) {
	conn, client := pipeConn(t)
	send(client, []byte(strings.Repeat("x", MaxLineLength+100)+"\nnext\n"))

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Len(t, line, MaxLineLength)

	line, err = conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "next", line)
}

func TestReadLine_EOF(t *testing.T) {
	conn, client := pipeConn(t)
	go func() {
		_, _ = client.Write([]byte("partial"))
		_ = client.Close()
	}()

	line, err := conn.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "partial", line)
}

func TestReadPassword_SuppressesEcho(t *testing.T) {
	conn, client := pipeConn(t)

	received := make(chan []byte, 1)
	go func() {
		prefix := make([]byte, 3)
		_, _ = io.ReadFull(client, prefix)
		_, _ = client.Write([]byte("s3cret\r\n"))
		suffix := make([]byte, 5)
		_, _ = io.ReadFull(client, suffix)
		received <- append(prefix, suffix...)
	}()

	password, err := conn.ReadPassword()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", password)
	assert.Equal(t, []byte{IAC, WILL, OptEcho, IAC, WONT, OptEcho, '\r', '\n'}, <-received)
}

func TestWriteLines(t *testing.T) {
	conn, client := pipeConn(t)
	go func() { _ = conn.WriteLines("first", "second") }()

	buf := make([]byte, len("first\r\nsecond\r\n"))
	_, err := io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, "first\r\nsecond\r\n", string(buf))

	assert.NoError(t, conn.WriteLines())
}

func TestNegotiate(t *testing.T) {
	conn, client := pipeConn(t)
	go func() { _ = conn.Negotiate() }()

	buf := make([]byte, 3)
	_, err := io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{IAC, WILL, OptSuppressGoAhead}, buf)
}

func TestClose_Idempotent(t *testing.T) {
	conn, _ := pipeConn(t)
	require.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())
	assert.Error(t, conn.WriteLine("after close"))
}

// Property: printable ASCII lines survive ReadLine unchanged.
func TestPropertyReadLine_PrintablePassThrough(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		text := rapid.StringMatching(`[ -~]{0,200}`).Draw(rt, "text")
		server, client := net.Pipe()
		defer client.Close()
		conn := NewConn(server, "p", 0, 0)
		defer conn.Close()
		send(client, []byte(text+"\r\n"))

		line, err := conn.ReadLine()
		require.NoError(rt, err)
		assert.Equal(rt, text, line)
	})
}
