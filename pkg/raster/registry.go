package raster

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/Fepozopo/imgcow/pkg/imgerr"
)

// Factory creates backends of one engine.
type Factory struct {
	Name    string
	Aliases []string
	// Rich engines are preferred by automatic selection.
	Rich      bool
	Available func() bool
	FromFile  func(path string, opts Options) (Backend, error)
	FromBytes func(data []byte, opts Options) (Backend, error)
}

func (f Factory) available() bool {
	return f.Available == nil || f.Available()
}

var registry struct {
	sync.RWMutex
	factories map[string]Factory
	order     []string
}

// Register adds f under its name and aliases. Registering a name twice
// replaces the earlier factory.
func Register(f Factory) {
	registry.Lock()
	defer registry.Unlock()
	if registry.factories == nil {
		registry.factories = map[string]Factory{}
	}
	name := strings.ToLower(f.Name)
	if _, exists := registry.factories[name]; !exists {
		registry.order = append(registry.order, name)
	}
	registry.factories[name] = f
	for _, a := range f.Aliases {
		registry.factories[strings.ToLower(a)] = f
	}
}

// Lookup resolves an adapter name. "" and "auto" select automatically.
// Unknown or unavailable adapters are configuration errors.
func Lookup(name string) (Factory, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "auto" {
		return Auto()
	}
	registry.RLock()
	f, ok := registry.factories[name]
	registry.RUnlock()
	if !ok {
		return Factory{}, imgerr.Configurationf("unknown backend %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	if !f.available() {
		return Factory{}, imgerr.Configurationf("backend %q is not installed in this build", name)
	}
	return f, nil
}

// Auto picks the first available rich engine, else the first available one.
func Auto() (Factory, error) {
	registry.RLock()
	defer registry.RUnlock()
	var fallback *Factory
	for _, name := range registry.order {
		f := registry.factories[name]
		if !f.available() {
			continue
		}
		if f.Rich {
			slog.Debug("backend selected", "name", f.Name, "mode", "auto")
			return f, nil
		}
		if fallback == nil {
			fallback = &f
		}
	}
	if fallback == nil {
		return Factory{}, imgerr.Configurationf("no image backend available")
	}
	slog.Debug("backend selected", "name", fallback.Name, "mode", "auto")
	return *fallback, nil
}

// Names lists the primary names of every registered engine.
func Names() []string {
	registry.RLock()
	defer registry.RUnlock()
	out := append([]string(nil), registry.order...)
	sort.Strings(out)
	return out
}
