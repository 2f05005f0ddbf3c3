// Package registry supplies the ordered list of active sources at job
// creation time. The list is a snapshot: a job created from it is never
// affected by later config edits.
package registry

import (
	"sync/atomic"

	"contractsearch-engine/internal/config"
	"contractsearch-engine/internal/domain"
)

type Registry struct {
	cfgVal *atomic.Value // stores config.Config
}

func New(cfgVal *atomic.Value) *Registry {
	return &Registry{cfgVal: cfgVal}
}

// ActiveSources reads the current config once and returns the active sources
// in canonical order (secop1, secop2, tvec).
func (r *Registry) ActiveSources() []domain.Source {
	cfgAny := r.cfgVal.Load()
	if cfgAny == nil {
		return nil
	}
	cfg := cfgAny.(config.Config)

	var out []domain.Source
	for _, name := range config.SourceOrder {
		sc, ok := cfg.SourceByName(name)
		if !ok || !sc.Active {
			continue
		}
		out = append(out, domain.Source{Name: name, Method: domain.Method(sc.Method)})
	}
	return out
}
