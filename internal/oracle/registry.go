// internal/oracle/registry.go

// Package oracle models the oracle side of market settlement: a registry
// of data providers, the signed-off data record a provider submits for a
// market, and the SHA-256 integrity hash that ties the record to its
// fields. Whether a record is trusted for settlement is decided in
// internal/settlement; this package only keeps the facts straight.
package oracle

import "fmt"

const (
	// MaxProviders caps the registry size.
	MaxProviders = 10

	// MaxScore is the upper bound for reliability and confidence
	// scores, in basis points.
	MaxScore uint16 = 10000
)

// ProviderType names the network a provider belongs to.
type ProviderType string

const (
	TypePyth        ProviderType = "pyth"
	TypeSwitchboard ProviderType = "switchboard"
	TypeChainlink   ProviderType = "chainlink"
	TypeCustom      ProviderType = "custom"
)

// Valid reports whether t is one of the known provider types.
func (t ProviderType) Valid() bool {
	switch t {
	case TypePyth, TypeSwitchboard, TypeChainlink, TypeCustom:
		return true
	}
	return false
}

// Provider is one registered oracle data source.
type Provider struct {
	ID          string       `json:"id"`
	Type        ProviderType `json:"type"`
	Active      bool         `json:"active"`
	Reliability uint16       `json:"reliability"`
}

// NewProvider builds an active provider with the given reliability
// score.
func NewProvider(id string, typ ProviderType, reliability uint16) (Provider, error) {
	if !typ.Valid() {
		return Provider{}, fmt.Errorf("%w: %q", ErrUnknownProviderType, typ)
	}
	if reliability > MaxScore {
		return Provider{}, fmt.Errorf("%w: %d > %d", ErrInvalidReliability, reliability, MaxScore)
	}
	return Provider{
		ID:          id,
		Type:        typ,
		Active:      true,
		Reliability: reliability,
	}, nil
}

// Deactivate takes the provider out of rotation. Existing data records
// it produced stay valid; it just stops being eligible as a fallback.
func (p *Provider) Deactivate() {
	p.Active = false
}

// Registry holds the set of providers an authority trusts.
type Registry struct {
	Authority          string     `json:"authority"`
	Providers          []Provider `json:"providers"`
	ConsensusThreshold uint8      `json:"consensus_threshold"`
}

// NewRegistry builds an empty registry. The consensus threshold is how
// many providers must agree before a multi-oracle readout counts, and
// can never exceed the registry capacity.
func NewRegistry(authority string, consensusThreshold uint8) (*Registry, error) {
	if consensusThreshold == 0 || consensusThreshold > MaxProviders {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidConsensus, consensusThreshold)
	}
	return &Registry{
		Authority:          authority,
		ConsensusThreshold: consensusThreshold,
	}, nil
}

// Add registers a provider. Each provider ID may appear at most once.
func (r *Registry) Add(p Provider) error {
	if len(r.Providers) >= MaxProviders {
		return fmt.Errorf("%w: %d providers", ErrTooManyProviders, len(r.Providers))
	}
	for _, existing := range r.Providers {
		if existing.ID == p.ID {
			return fmt.Errorf("%w: %s", ErrProviderExists, p.ID)
		}
	}
	r.Providers = append(r.Providers, p)
	return nil
}

// ActiveProviders returns the providers currently in rotation.
func (r *Registry) ActiveProviders() []Provider {
	active := make([]Provider, 0, len(r.Providers))
	for _, p := range r.Providers {
		if p.Active {
			active = append(active, p)
		}
	}
	return active
}

// Fallback picks the most reliable active provider other than the
// excluded one. Used when a market's primary oracle is disputed or goes
// dark.
func (r *Registry) Fallback(excludedID string) (Provider, error) {
	var (
		best  Provider
		found bool
	)
	for _, p := range r.Providers {
		if !p.Active || p.ID == excludedID {
			continue
		}
		if !found || p.Reliability > best.Reliability {
			best = p
			found = true
		}
	}
	if !found {
		return Provider{}, ErrNoFallback
	}
	return best, nil
}
