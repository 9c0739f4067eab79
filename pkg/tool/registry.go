package tool

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// ServerInfo is the non-secret connection metadata of a remote tool server.
// It is surfaced to hook events so policy scripts can see where a remote
// call would go; credentials never pass through here.
type ServerInfo struct {
	Name    string   `json:"name"`
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
	Cwd     string   `json:"cwd,omitempty"`
	URL     string   `json:"url,omitempty"`
}

// Registry resolves tool names to implementations and remote tools to their
// server metadata. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	servers map[string]ServerInfo
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		servers: make(map[string]ServerInfo),
	}
}

// Register adds a tool. Definition-backed tools are validated before
// registration.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool cannot be nil")
	}
	if def, ok := t.(*Definition); ok {
		if err := def.Validate(); err != nil {
			return fmt.Errorf("invalid tool definition: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, name)
	}
	r.tools[name] = t

	log.Info().Str("tool", name).Msg("Tool registered")
	return nil
}

// RegisterServer records connection metadata for a remote tool server.
func (r *Registry) RegisterServer(info ServerInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.servers[info.Name] = info
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// ServerFor returns connection metadata for a tool's backing server, if the
// tool is remote-backed and its server is known.
func (r *Registry) ServerFor(t Tool) (ServerInfo, bool) {
	remote, ok := t.(RemoteTool)
	if !ok {
		return ServerInfo{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.servers[remote.ServerName()]
	return info, ok
}

// Names returns all registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	log.Info().Str("tool", name).Msg("Tool unregistered")
}
