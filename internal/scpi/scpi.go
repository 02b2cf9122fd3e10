// Package scpi provides the command/response link to the oscilloscope.
//
// The link is a synchronous single-outstanding-request transport: every
// command or query blocks until the instrument replies (or the transport
// times out). A mutex serializes callers so no two requests interleave on
// the wire.
//
// Two transports are provided: TCP (Rigol scopes listen on port 5555 with
// newline-terminated replies) and USB serial. Both share the same framing
// code; binary replies keep their block header attached so the decoding
// layer stays in one place.
package scpi

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// Link is the minimum instrument surface the capture pipeline needs.
type Link interface {
	// IsConnected reports whether the link is usable. A transport error on
	// any request drops the link to disconnected.
	IsConnected() bool

	// SendCommand writes a fire-and-forget command.
	SendCommand(cmd string) error

	// SendQuery writes a query and returns the textual reply with the line
	// terminator stripped.
	SendQuery(query string) (string, error)

	// SendBinaryQuery writes a query and returns the raw binary block
	// reply, length-prefixed header still attached.
	SendBinaryQuery(query string) ([]byte, error)

	// Close releases the transport.
	Close() error
}

// DialTimeout bounds the TCP connection attempt.
const DialTimeout = 5 * time.Second

// Conn is a Link over any stream transport.
type Conn struct {
	mu        sync.Mutex
	rwc       io.ReadWriteCloser
	r         *bufio.Reader
	connected bool
}

// DialTCP connects to an instrument at addr ("host:port").
func DialTCP(addr string) (*Conn, error) {
	c, err := net.DialTimeout("tcp", addr, DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial instrument %s: %w", addr, err)
	}
	return newConn(c), nil
}

// OpenSerial opens an instrument on a USB serial device at the given baud
// rate. The read timeout keeps a wedged instrument from blocking forever.
func OpenSerial(device string, baud int) (*Conn, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: 2 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", device, err)
	}
	return newConn(port), nil
}

// NewConn wraps an arbitrary stream as a Link. Exposed for tests and for
// callers with their own transport.
func NewConn(rwc io.ReadWriteCloser) *Conn {
	return newConn(rwc)
}

func newConn(rwc io.ReadWriteCloser) *Conn {
	return &Conn{
		rwc:       rwc,
		r:         bufio.NewReader(rwc),
		connected: true,
	}
}

// IsConnected implements Link.
func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close implements Link.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	c.connected = false
	return c.rwc.Close()
}

// SendCommand implements Link.
func (c *Conn) SendCommand(cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(cmd)
}

// SendQuery implements Link.
func (c *Conn) SendQuery(query string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(query); err != nil {
		return "", err
	}
	// A binary block's trailing terminator can straggle in after the block
	// read finished; skip stray blank lines rather than reporting one as
	// the reply.
	for tries := 0; tries < 4; tries++ {
		line, err := c.r.ReadString('\n')
		if err != nil {
			c.fail()
			return "", fmt.Errorf("read reply to %q: %w", query, err)
		}
		if reply := strings.TrimRight(line, "\r\n"); reply != "" {
			return reply, nil
		}
	}
	return "", nil
}

// SendBinaryQuery implements Link.
//
// The reply is read by interpreting the block header on the wire: the header
// declares the payload length, which tells us exactly how many bytes to
// consume. The returned slice contains the header followed by the payload,
// so the decoding layer sees the same bytes the instrument sent. A reply
// that does not start with a block header is read to end of line and
// returned as-is for the decoder to diagnose.
func (c *Conn) SendBinaryQuery(query string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(query); err != nil {
		return nil, err
	}

	first, err := c.r.ReadByte()
	if err != nil {
		c.fail()
		return nil, fmt.Errorf("read reply to %q: %w", query, err)
	}
	if first != '#' {
		rest, _ := c.r.ReadBytes('\n')
		return append([]byte{first}, rest...), nil
	}

	var buf bytes.Buffer
	buf.WriteByte(first)

	widthByte, err := c.r.ReadByte()
	if err != nil {
		c.fail()
		return nil, fmt.Errorf("read block header: %w", err)
	}
	buf.WriteByte(widthByte)
	if widthByte < '1' || widthByte > '9' {
		rest, _ := c.r.ReadBytes('\n')
		buf.Write(rest)
		return buf.Bytes(), nil
	}

	width := int(widthByte - '0')
	lenField := make([]byte, width)
	if _, err := io.ReadFull(c.r, lenField); err != nil {
		c.fail()
		return nil, fmt.Errorf("read block length field: %w", err)
	}
	buf.Write(lenField)

	length := 0
	for _, b := range lenField {
		if b < '0' || b > '9' {
			rest, _ := c.r.ReadBytes('\n')
			buf.Write(rest)
			return buf.Bytes(), nil
		}
		length = length*10 + int(b-'0')
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(c.r, payload); err != nil {
		c.fail()
		return nil, fmt.Errorf("read block payload (%d bytes): %w", length, err)
	}
	buf.Write(payload)

	// Consume a trailing terminator if one is already buffered. Never block
	// waiting for it; serial transports may not send one.
	for c.r.Buffered() > 0 {
		b, _ := c.r.Peek(1)
		if b[0] != '\n' && b[0] != '\r' {
			break
		}
		_, _ = c.r.ReadByte()
	}

	return buf.Bytes(), nil
}

// write sends text with the line terminator appended. Caller holds c.mu.
func (c *Conn) write(text string) error {
	if !c.connected {
		return fmt.Errorf("link is not connected")
	}
	if _, err := io.WriteString(c.rwc, text+"\n"); err != nil {
		c.fail()
		return fmt.Errorf("write %q: %w", text, err)
	}
	return nil
}

// fail drops the link to disconnected after a transport error. Caller holds
// c.mu.
func (c *Conn) fail() {
	c.connected = false
}

// Identify asks the instrument for its *IDN? string.
func Identify(l Link) (string, error) {
	return l.SendQuery("*IDN?")
}
