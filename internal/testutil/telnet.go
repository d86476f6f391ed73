// Package testutil provides network test clients for the chat frontends.
package testutil

import (
	"bytes"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/cory-johannsen/chatrooms/internal/frontend/telnet"
)

// TelnetClient is a simple Telnet test client for integration testing.
// Output read past a match is kept for the next ReadUntil.
type TelnetClient struct {
	conn    net.Conn
	raw     []byte
	pending strings.Builder
	t       testing.TB
}

// NewTelnetClient dials the given address and returns a test client.
//
// Precondition: addr must be a valid "host:port" string with a listening server.
// Postcondition: Returns a connected TelnetClient or fails the test.
func NewTelnetClient(t testing.TB, addr string) *TelnetClient {
	t.Helper()
	start := time.Now()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v [%s]", addr, err, time.Since(start))
	}

	t.Cleanup(func() {
		conn.Close()
	})

	t.Logf("telnet client connected to %s [%s]", addr, time.Since(start))
	return &TelnetClient{conn: conn, t: t}
}

// ReadUntil reads until substr appears in the ANSI-stripped, IAC-free output
// or timeout elapses. It returns the stripped output up to and including the
// match; anything after the match is retained.
//
// Precondition: substr must be non-empty.
// Postcondition: Returns the output containing substr, or fails on timeout.
func (c *TelnetClient) ReadUntil(substr string, timeout time.Duration) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	tmp := make([]byte, 1024)
	for {
		text := c.pending.String()
		if idx := strings.Index(text, substr); idx >= 0 {
			end := idx + len(substr)
			c.pending.Reset()
			c.pending.WriteString(text[end:])
			return text[:end]
		}

		n, err := c.conn.Read(tmp)
		if n > 0 {
			c.raw = append(c.raw, tmp[:n]...)
			cut := completePrefix(c.raw)
			c.pending.WriteString(telnet.StripANSI(string(stripIAC(c.raw[:cut]))))
			c.raw = append(c.raw[:0], c.raw[cut:]...)
		}
		if err != nil {
			c.t.Fatalf("reading until %q: got %q, error: %v", substr, c.pending.String(), err)
		}
	}
}

// Send writes a line of text to the server, appending \r\n.
//
// Precondition: text should not contain trailing newline characters.
// Postcondition: text + \r\n is written to the connection.
func (c *TelnetClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", text); err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Close closes the underlying connection.
func (c *TelnetClient) Close() {
	c.conn.Close()
}

// completePrefix returns the length of data that holds no escape or IAC
// sequence cut short by a read boundary.
func completePrefix(data []byte) int {
	cut := len(data)
	if i := bytes.LastIndexByte(data, 0x1b); i >= 0 {
		complete := false
		if i+1 < len(data) && data[i+1] == '[' {
			for _, b := range data[i+2:] {
				if b >= 0x40 && b <= 0x7e {
					complete = true
					break
				}
			}
		}
		if !complete {
			cut = i
		}
	}
	if i := bytes.LastIndexByte(data[:cut], telnet.IAC); i >= 0 && cut-i < 3 {
		cut = i
	}
	return cut
}

// stripIAC drops three-byte Telnet option commands (IAC WILL/WONT/DO/DONT opt).
// The server sends no other command sequences.
func stripIAC(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == telnet.IAC && i+2 < len(data) {
			i += 2
			continue
		}
		out = append(out, data[i])
	}
	return out
}
