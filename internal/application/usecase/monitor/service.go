package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/application/service"
	"spreadwatch/internal/domain"
	dsvc "spreadwatch/internal/domain/service"
)

type ServiceDeps struct {
	Sources      []port.PriceSource
	Feeds        []port.StreamFeed
	Instruments  []string
	PollInterval time.Duration
	FetchTimeout time.Duration
	MaxStaleness time.Duration
	PriceMode    dsvc.PriceMode
	Filter       *service.OpportunityFilter
	Dispatcher   *service.Dispatcher
	Repo         port.Repository
}

// Service polls every instrument on a fixed interval and turns qualifying
// spreads into dispatched alerts. Cycles for one instrument run strictly in
// sequence; instruments run independently of each other.
type Service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) *Service {
	return &Service{deps: deps}
}

func (s *Service) Run(ctx context.Context) error {
	if len(s.deps.Sources) != 2 {
		return errors.New("exactly two price sources required")
	}
	if len(s.deps.Instruments) == 0 {
		return errors.New("no instruments to monitor")
	}

	// start stream feeds, if any venue runs in ws mode
	for _, feed := range s.deps.Feeds {
		if err := feed.Start(ctx, s.deps.Instruments); err != nil {
			return err
		}
		log.Info().Str("feed", feed.Name()).Msg("stream feed started")
	}

	var wg sync.WaitGroup
	for _, inst := range s.deps.Instruments {
		wg.Add(1)
		go func(inst string) {
			defer wg.Done()
			s.runInstrument(ctx, inst)
		}(inst)
	}
	wg.Wait()
	return ctx.Err()
}

// runInstrument owns one instrument's poll loop. The next cycle starts only
// after the previous one finished, so a slow dispatch delays polling instead
// of overlapping it.
func (s *Service) runInstrument(ctx context.Context, instrument string) {
	ticker := time.NewTicker(s.deps.PollInterval)
	defer ticker.Stop()

	s.cycle(ctx, instrument)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cycle(ctx, instrument)
		}
	}
}

// cycle runs one fetch-align-compute-filter-dispatch pass. Every failure is
// contained here: the cycle is skipped and the loop stays alive.
func (s *Service) cycle(ctx context.Context, instrument string) {
	fctx, cancel := context.WithTimeout(ctx, s.deps.FetchTimeout)
	defer cancel()

	var snaps [2]domain.PriceSnapshot
	g, gctx := errgroup.WithContext(fctx)
	for i, src := range s.deps.Sources {
		g.Go(func() error {
			snap, err := src.Fetch(gctx, instrument)
			if err != nil {
				return err
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logFetchFailure(instrument, err)
		return
	}

	for _, snap := range snaps {
		if mid, ok := snap.Mid(); ok {
			if err := s.deps.Repo.UpsertLatestPrice(ctx, snap.Venue, snap.Instrument, mid, snap.ObservedAt.UnixMilli()); err != nil {
				log.Warn().Str("venue", string(snap.Venue)).Str("instrument", instrument).Err(err).Msg("price journal write failed")
			}
		}
	}

	pair, err := dsvc.Align(snaps[0], snaps[1], s.deps.MaxStaleness)
	if err != nil {
		log.Warn().Str("instrument", instrument).Err(err).Msg("snapshot pair rejected")
		return
	}

	res, err := dsvc.ComputeSpread(pair, s.deps.PriceMode)
	if err != nil {
		// a venue reported a non-positive price, worth more noise than a miss
		log.Error().Str("instrument", instrument).Err(err).Msg("spread computation rejected input")
		return
	}

	ev := s.deps.Filter.Evaluate(res, time.Now())
	if ev == nil {
		log.Debug().
			Str("instrument", instrument).
			Float64("spread_pct", res.SpreadPct).
			Msg("below alert criteria")
		return
	}

	log.Info().
		Str("instrument", ev.Instrument).
		Str("event_id", ev.ID).
		Float64("spread_pct", ev.SpreadPct).
		Str("buy", string(ev.BuyVenue)).
		Str("sell", string(ev.SellVenue)).
		Msg("opportunity detected")

	if err := s.deps.Dispatcher.Dispatch(ctx, ev); err != nil {
		// at-most-once: the event is dropped, the cooldown entry stands
		log.Error().Str("event_id", ev.ID).Err(err).Msg("alert dropped")
	}

	if err := s.deps.Repo.InsertOpportunity(ctx, ev); err != nil {
		log.Warn().Str("event_id", ev.ID).Err(err).Msg("opportunity journal write failed")
	}
}

func (s *Service) logFetchFailure(instrument string, err error) {
	var fe *port.FetchError
	if errors.As(err, &fe) {
		log.Warn().
			Str("instrument", instrument).
			Str("venue", string(fe.Venue)).
			Str("kind", string(fe.Kind)).
			Err(err).
			Msg("fetch failed, cycle skipped")
		return
	}
	log.Warn().Str("instrument", instrument).Err(err).Msg("fetch failed, cycle skipped")
}
