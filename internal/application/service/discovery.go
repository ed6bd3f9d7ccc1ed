package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application/port"
)

// InstrumentResolver produces the instrument set to monitor when discovery
// is on: the intersection of every venue's tradable perpetuals, minus the
// configured exclusions.
type InstrumentResolver struct {
	listers  []port.InstrumentLister
	excluded map[string]struct{}
}

func NewInstrumentResolver(listers []port.InstrumentLister, excluded []string) *InstrumentResolver {
	ex := make(map[string]struct{}, len(excluded))
	for _, e := range excluded {
		e = strings.ToUpper(strings.TrimSpace(e))
		if e != "" {
			ex[e] = struct{}{}
		}
	}
	return &InstrumentResolver{listers: listers, excluded: ex}
}

// Resolve lists every venue and intersects the results. An instrument is
// monitored only when all venues trade it. The result is sorted so the
// scheduler spawns loops in a stable order.
func (r *InstrumentResolver) Resolve(ctx context.Context) ([]string, error) {
	if len(r.listers) == 0 {
		return nil, fmt.Errorf("no instrument listers available")
	}

	counts := make(map[string]int)
	for _, l := range r.listers {
		list, err := l.ListInstruments(ctx)
		if err != nil {
			return nil, fmt.Errorf("list instruments on %s: %w", l.Venue(), err)
		}
		seen := make(map[string]struct{}, len(list))
		for _, inst := range list {
			inst = strings.ToUpper(strings.TrimSpace(inst))
			if inst == "" {
				continue
			}
			if _, dup := seen[inst]; dup {
				continue
			}
			seen[inst] = struct{}{}
			counts[inst]++
		}
		log.Info().Str("venue", string(l.Venue())).Int("instruments", len(seen)).Msg("venue instruments listed")
	}

	var out []string
	for inst, n := range counts {
		if n != len(r.listers) {
			continue
		}
		if _, skip := r.excluded[inst]; skip {
			continue
		}
		out = append(out, inst)
	}
	sort.Strings(out)
	return out, nil
}
