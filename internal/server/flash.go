package web

import (
	"net"
	"net/http"
	"sync"
)

// flashes holds one-shot dashboard messages keyed by client host.
type flashes struct {
	mu       sync.Mutex
	messages map[string]string
}

func newFlashes() *flashes {
	return &flashes{messages: make(map[string]string)}
}

func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// set stores a message for the client that sent r
func (f *flashes) set(r *http.Request, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[clientKey(r)] = message
}

// pop retrieves and immediately deletes a message
func (f *flashes) pop(r *http.Request) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := clientKey(r)
	message, ok := f.messages[key]
	if ok {
		delete(f.messages, key)
	}
	return message
}
