package telnet

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"time"
)

// Telnet command bytes (RFC 854) and the options the chat server touches.
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250
	GA   byte = 249
	NOP  byte = 241
	SE   byte = 240

	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
	OptLinemode        byte = 34
)

// MaxLineLength caps one input line in bytes. Bytes past the cap are dropped
// up to the next line ending.
const MaxLineLength = 4096

// Conn is one Telnet client: line input with protocol bytes stripped, and
// serialized CRLF output. Reads are expected from a single goroutine; writes
// may come from any.
type Conn struct {
	id     string
	raw    net.Conn
	reader *bufio.Reader

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConn wraps raw. Zero timeouts disable the corresponding deadline.
//
// Precondition: raw must be open; id must be unique among live connections.
func NewConn(raw net.Conn, id string, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		id:           id,
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, MaxLineLength),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// ID returns the connection identifier assigned at accept time.
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr returns the client's network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

// Negotiate offers to suppress go-ahead so clients send whole lines.
func (c *Conn) Negotiate() error {
	return c.write([]byte{IAC, WILL, OptSuppressGoAhead})
}

// ReadLine returns the next input line without its line ending. Telnet
// commands and control characters other than tab are dropped; CR, LF and
// CRLF all end a line.
//
// Postcondition: On error the partial line read so far is returned with it.
func (c *Conn) ReadLine() (string, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	buf := make([]byte, 0, 128)
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			return string(buf), err
		}

		switch {
		case b == IAC:
			if err := c.skipCommand(); err != nil {
				return string(buf), err
			}
		case b == '\n':
			return string(buf), nil
		case b == '\r':
			if next, err := c.reader.Peek(1); err == nil && next[0] == '\n' {
				_, _ = c.reader.ReadByte()
			}
			return string(buf), nil
		case b < 0x20 && b != '\t':
		case len(buf) < MaxLineLength:
			buf = append(buf, b)
		}
	}
}

// skipCommand consumes the remainder of a command whose IAC byte was just read.
func (c *Conn) skipCommand() error {
	cmd, err := c.reader.ReadByte()
	if err != nil {
		return err
	}
	switch cmd {
	case WILL, WONT, DO, DONT:
		_, err = c.reader.ReadByte()
		return err
	case SB:
		return c.skipSubnegotiation()
	}
	return nil
}

// skipSubnegotiation discards bytes through the terminating IAC SE.
func (c *Conn) skipSubnegotiation() error {
	prevIAC := false
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			return err
		}
		if prevIAC && b == SE {
			return nil
		}
		prevIAC = b == IAC && !prevIAC
	}
}

// ReadPassword reads one line with client echo turned off, then restores
// echo and moves the cursor past the hidden input.
func (c *Conn) ReadPassword() (string, error) {
	if err := c.write([]byte{IAC, WILL, OptEcho}); err != nil {
		return "", err
	}
	line, err := c.ReadLine()
	_ = c.write([]byte{IAC, WONT, OptEcho, '\r', '\n'})
	return line, err
}

// WriteLine sends text followed by CRLF.
func (c *Conn) WriteLine(text string) error {
	return c.write([]byte(text + "\r\n"))
}

// WriteLines sends every line, each followed by CRLF, in one write so lines
// from concurrent writers never interleave.
func (c *Conn) WriteLines(lines ...string) error {
	if len(lines) == 0 {
		return nil
	}
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteString("\r\n")
	}
	return c.write([]byte(sb.String()))
}

// WritePrompt sends prompt with no line ending.
func (c *Conn) WritePrompt(prompt string) error {
	return c.write([]byte(prompt))
}

func (c *Conn) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := c.raw.Write(data)
	return err
}

// Close closes the connection. Later calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.raw.Close()
	})
	return c.closeErr
}
