package adapters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/smallbiznis/nannyhub/internal/payment/domain"
)

// Registry maps a PAYMENT_PROVIDER name to the factory building its
// gateway. Names are case-insensitive.
type Registry struct {
	factories map[string]domain.AdapterFactory
}

func NewRegistry(factories ...domain.AdapterFactory) *Registry {
	r := &Registry{factories: make(map[string]domain.AdapterFactory, len(factories))}
	for _, f := range factories {
		if f == nil {
			continue
		}
		if name := providerKey(f.Provider()); name != "" {
			r.factories[name] = f
		}
	}
	return r
}

// Providers lists the registered names in order.
func (r *Registry) Providers() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) NewGateway(provider string, cfg domain.AdapterConfig) (domain.Gateway, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	f, ok := r.factories[providerKey(provider)]
	if !ok {
		return nil, fmt.Errorf("%w: %q, have %s", domain.ErrProviderNotFound, provider, strings.Join(r.Providers(), ", "))
	}
	return f.NewGateway(cfg)
}

func providerKey(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
