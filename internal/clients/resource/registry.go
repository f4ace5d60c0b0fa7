package resource

import (
	"fmt"

	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/pkg/mapperr"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
)

// Client type discriminators stored on mapping_resource rows.
const (
	ClientTypeHTTP   = "http"
	ClientTypeStatic = "static"
)

// Registry resolves resource names to client instances. It is built once at
// startup from the configured resources and injected wherever clients are
// needed; there is no process-wide singleton.
type Registry struct {
	log     *logger.Logger
	clients map[string]Client
}

// NewRegistry constructs one client per active resource. Any construction
// failure is a ClientInitError: a path referencing that resource can never
// succeed, so the caller should treat it as fatal.
func NewRegistry(baseLog *logger.Logger, resources []*types.MappingResource) (*Registry, error) {
	log := baseLog.With("service", "ResourceRegistry")
	clients := make(map[string]Client, len(resources))
	for _, res := range resources {
		if res == nil || !res.Active {
			continue
		}
		c, err := buildClient(log, res)
		if err != nil {
			return nil, &mapperr.ClientInitError{Resource: res.Name, Err: err}
		}
		clients[res.Name] = c
	}
	log.Info("resource registry built", "clients", len(clients))
	return &Registry{log: log, clients: clients}, nil
}

// NewRegistryFromClients builds a registry over pre-constructed clients.
func NewRegistryFromClients(baseLog *logger.Logger, clients ...Client) *Registry {
	m := make(map[string]Client, len(clients))
	for _, c := range clients {
		if c != nil {
			m[c.Name()] = c
		}
	}
	return &Registry{log: baseLog.With("service", "ResourceRegistry"), clients: m}
}

func (r *Registry) Get(name string) (Client, bool) {
	c, ok := r.clients[name]
	return c, ok
}

func buildClient(log *logger.Logger, res *types.MappingResource) (Client, error) {
	switch res.ClientType {
	case ClientTypeHTTP:
		return NewHTTPClient(log, res)
	case ClientTypeStatic:
		return NewStaticClient(log, res)
	default:
		return nil, fmt.Errorf("unknown client type %q", res.ClientType)
	}
}
