package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"gorm.io/datatypes"

	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
)

type staticClientConfig struct {
	Mappings   map[string][]string `json:"mappings"`
	Confidence float64             `json:"confidence"`
}

// staticClient serves a conversion table declared directly in the resource
// configuration. Useful for small curated dictionaries that do not warrant a
// remote service.
type staticClient struct {
	name       string
	log        *logger.Logger
	mappings   map[string][]string
	confidence float64
}

func NewStaticClient(baseLog *logger.Logger, res *types.MappingResource) (Client, error) {
	var cfg staticClientConfig
	if len(res.Config) > 0 {
		if err := json.Unmarshal(res.Config, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if len(cfg.Mappings) == 0 {
		return nil, fmt.Errorf("static resource %q declares no mappings", res.Name)
	}
	if cfg.Confidence <= 0 || cfg.Confidence > 1 {
		cfg.Confidence = 1.0
	}
	return &staticClient{
		name:       res.Name,
		log:        baseLog.With("client", "StaticMappingClient", "resource", res.Name),
		mappings:   cfg.Mappings,
		confidence: cfg.Confidence,
	}, nil
}

func (c *staticClient) Name() string { return c.name }

func (c *staticClient) MapIdentifiers(ctx context.Context, identifiers []string, _ datatypes.JSON) (map[string]MappedValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]MappedValue, len(identifiers))
	for _, id := range identifiers {
		targets, ok := c.mappings[id]
		if !ok {
			continue
		}
		out[id] = MappedValue{
			TargetIDs:  append([]string(nil), targets...),
			Confidence: c.confidence,
		}
	}
	return out, nil
}

// ReverseMapIdentifiers inverts the declared table.
func (c *staticClient) ReverseMapIdentifiers(ctx context.Context, identifiers []string) (ReverseResult, error) {
	if err := ctx.Err(); err != nil {
		return ReverseResult{}, err
	}
	inverse := make(map[string][]string)
	for src, targets := range c.mappings {
		for _, t := range targets {
			inverse[t] = append(inverse[t], src)
		}
	}
	// Map iteration order leaks into the source lists; sort so repeated
	// calls return identical results.
	for _, sources := range inverse {
		sort.Strings(sources)
	}
	out := ReverseResult{InputToPrimary: map[string][]string{}}
	for _, id := range identifiers {
		out.InputToPrimary[id] = append([]string(nil), inverse[id]...)
	}
	return out, nil
}
