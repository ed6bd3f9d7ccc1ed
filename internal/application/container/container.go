package container

import (
	"time"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/application/service"
	"spreadwatch/internal/application/usecase/monitor"
	dsvc "spreadwatch/internal/domain/service"
	"spreadwatch/internal/infrastructure/config"
	infra "spreadwatch/internal/infrastructure/container"
)

const dispatchTimeout = 10 * time.Second

// Container assembles the application services on top of the infrastructure
// container. Construction is lazy; resources stay owned by the infra side.
type Container struct {
	cfg   *config.Config
	infra *infra.Container

	history    *monitor.History
	filter     *service.OpportunityFilter
	dispatcher *service.Dispatcher
	resolver   *service.InstrumentResolver
}

func New(cfg *config.Config, inf *infra.Container) *Container {
	return &Container{
		cfg:   cfg,
		infra: inf,
	}
}

func (c *Container) History() *monitor.History {
	if c.history == nil {
		c.history = monitor.NewHistory()
	}
	return c.history
}

func (c *Container) Filter() *service.OpportunityFilter {
	if c.filter == nil {
		c.filter = service.NewOpportunityFilter(service.FilterParams{
			ThresholdPct:   c.cfg.Filter.ThresholdPct,
			CostPct:        c.cfg.RoundTripCostPct(),
			NetProfitCheck: c.cfg.NetProfitCheck(),
			Cooldown:       c.cfg.Cooldown(),
		}, c.History())
	}
	return c.filter
}

func (c *Container) Dispatcher() *service.Dispatcher {
	if c.dispatcher == nil {
		c.dispatcher = service.NewDispatcher(c.infra.Sinks(), dispatchTimeout)
	}
	return c.dispatcher
}

func (c *Container) Resolver() *service.InstrumentResolver {
	if c.resolver == nil {
		c.resolver = service.NewInstrumentResolver(c.infra.Listers(), c.cfg.Instruments.Excluded)
	}
	return c.resolver
}

// Repository returns the configured write path, or a no-op one when storage
// is disabled.
func (c *Container) Repository() port.Repository {
	if repo := c.infra.Repo(); repo != nil {
		return repo
	}
	return monitor.NewNoopRepo()
}

// Monitor builds the monitoring service for the resolved instrument set.
func (c *Container) Monitor(instruments []string) *monitor.Service {
	return monitor.NewService(monitor.ServiceDeps{
		Sources:      c.infra.Sources(),
		Feeds:        c.infra.Feeds(),
		Instruments:  instruments,
		PollInterval: c.cfg.PollInterval(),
		FetchTimeout: c.cfg.FetchTimeout(),
		MaxStaleness: c.cfg.MaxStaleness(),
		PriceMode:    dsvc.PriceMode(c.cfg.App.PriceMode),
		Filter:       c.Filter(),
		Dispatcher:   c.Dispatcher(),
		Repo:         c.Repository(),
	})
}
