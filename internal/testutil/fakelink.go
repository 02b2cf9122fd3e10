package testutil

import (
	"fmt"
	"sync"
)

// FakeLink is a scripted instrument link for tests.
//
// Queries answer from Replies (fixed) or ReplySeq (consumed one per call;
// takes precedence while non-empty). Binary queries answer from Binary.
// Any command or query listed in Fail returns an error instead.
//
// Every command and query sent is recorded in order for assertions.
type FakeLink struct {
	mu sync.Mutex

	// Connected is what IsConnected reports. Defaults true via NewFakeLink.
	Connected bool

	// Replies maps a query string to its reply.
	Replies map[string]string

	// ReplySeq maps a query string to successive replies; each call
	// consumes one. When exhausted, Replies is consulted.
	ReplySeq map[string][]string

	// Binary maps a binary query string to its raw block reply.
	Binary map[string][]byte

	// Fail maps a command or query string to the error it should return.
	Fail map[string]error

	sent []string
}

// NewFakeLink creates a connected FakeLink with empty script tables.
func NewFakeLink() *FakeLink {
	return &FakeLink{
		Connected: true,
		Replies:   make(map[string]string),
		ReplySeq:  make(map[string][]string),
		Binary:    make(map[string][]byte),
		Fail:      make(map[string]error),
	}
}

// IsConnected implements scpi.Link.
func (l *FakeLink) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Connected
}

// SendCommand implements scpi.Link.
func (l *FakeLink) SendCommand(cmd string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, cmd)
	return l.Fail[cmd]
}

// SendQuery implements scpi.Link.
func (l *FakeLink) SendQuery(query string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, query)

	if err := l.Fail[query]; err != nil {
		return "", err
	}
	if seq := l.ReplySeq[query]; len(seq) > 0 {
		reply := seq[0]
		l.ReplySeq[query] = seq[1:]
		return reply, nil
	}
	if reply, ok := l.Replies[query]; ok {
		return reply, nil
	}
	return "", fmt.Errorf("no scripted reply for query %q", query)
}

// SendBinaryQuery implements scpi.Link.
func (l *FakeLink) SendBinaryQuery(query string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, query)

	if err := l.Fail[query]; err != nil {
		return nil, err
	}
	if block, ok := l.Binary[query]; ok {
		return block, nil
	}
	return nil, fmt.Errorf("no scripted block for query %q", query)
}

// Close implements scpi.Link.
func (l *FakeLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Connected = false
	return nil
}

// Sent returns a copy of every command and query sent so far, in order.
func (l *FakeLink) Sent() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.sent))
	copy(out, l.sent)
	return out
}
