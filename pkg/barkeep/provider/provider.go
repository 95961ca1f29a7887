// Package provider implements the chat completion backends (chatgpt,
// deepseek, gemini), the shared model catalog with cached refresh, and
// API key resolution.
package provider

import (
	"context"
	"fmt"
	"sort"
)

// Message is one turn sent to a completion backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is a chat completion backend.
type Provider interface {
	// Name is the provider id users select with $chat -llm.
	Name() string
	// Complete sends the system prompt plus history and returns the
	// assistant's reply.
	Complete(ctx context.Context, model, systemPrompt string, history []Message) (string, error)
	// ListModels returns the model ids the backend currently offers.
	ListModels(ctx context.Context) ([]string, error)
}

// Registry holds the configured providers by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry from the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the named provider.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %v)", name, r.Names())
	}
	return p, nil
}

// Has reports whether the name is a configured provider.
func (r *Registry) Has(name string) bool {
	_, ok := r.providers[name]
	return ok
}

// Names returns the configured provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
