// Package provider wraps the external simplification APIs behind a
// single client contract. Every call, successful or not, appends an
// audit log entry with the auth token redacted.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for call failures. All are non-fatal to a run: the
// orchestrator records the fragment as failed and continues the batch.
var (
	// ErrNotConfigured means the provider is missing its token or URL,
	// or the call carried no text. No network request is attempted.
	ErrNotConfigured = errors.New("provider: not configured")
	// ErrTransport wraps network, timeout and non-200 failures.
	ErrTransport = errors.New("provider: transport error")
)

// Request is the uniform input to every provider.
type Request struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
	HTML           bool
	Test           bool // trial call, never counted against quota
}

// Result is the uniform output. The zero value is the EMPTY result the
// caller treats as a per-fragment failure.
type Result struct {
	SimplifiedText string
	JobID          string
}

// Empty reports whether the call produced no usable text.
func (r Result) Empty() bool {
	return r.SimplifiedText == ""
}

// Client is the capability contract for one simplification provider.
type Client interface {
	// Name returns the registry key for this provider.
	Name() string

	// Call sends one text through the provider. On failure it returns
	// the EMPTY result and an error from the package taxonomy; the
	// audit log entry has been written in either case.
	Call(ctx context.Context, req Request) (Result, error)
}

// Doer abstracts the HTTP transport, enabling test mocks.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Registry holds the configured providers in registration order.
type Registry struct {
	order   []string
	clients map[string]Client
}

// NewRegistry returns an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{clients: map[string]Client{}}
}

// Register adds a client under its name, replacing any previous
// registration of the same name.
func (r *Registry) Register(c Client) {
	if _, ok := r.clients[c.Name()]; !ok {
		r.order = append(r.order, c.Name())
	}
	r.clients[c.Name()] = c
}

// Get returns the client registered under name.
func (r *Registry) Get(name string) (Client, error) {
	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("provider: unknown api %q (registered: %s)", name, strings.Join(r.order, ", "))
	}
	return c, nil
}

// Names returns the registered provider names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// normalizeText applies the shared response post-processing: line endings
// are normalized to \n and surrounding whitespace is dropped.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}
