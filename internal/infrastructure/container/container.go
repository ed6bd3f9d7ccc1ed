package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/infrastructure/config"
	"spreadwatch/internal/infrastructure/notify"
	"spreadwatch/internal/infrastructure/pricefeed"
	"spreadwatch/internal/infrastructure/storage/composite"
	postgresrepo "spreadwatch/internal/infrastructure/storage/postgres"
	redisrepo "spreadwatch/internal/infrastructure/storage/redis"
	sqliterepo "spreadwatch/internal/infrastructure/storage/sqlite"
	"spreadwatch/internal/interfaces/console"
)

// Container 包含所有基础设施依赖
type Container struct {
	cfg         *config.Config
	redisClient *redis.Client
	sqliteRepo  *sqliterepo.Repo

	sources []port.PriceSource
	listers []port.InstrumentLister
	feeds   []port.StreamFeed
	repos   []port.Repository
	sinks   []port.Sink

	closeOnce   sync.Once
	closerChain []func() error
}

// New 创建新的容器实例
func New(cfg *config.Config) (*Container, error) {
	c := &Container{
		cfg:         cfg,
		closerChain: make([]func() error, 0),
	}

	if err := c.initVenues(); err != nil {
		_ = c.Close()
		return nil, err
	}

	// 初始化存储层
	if cfg.Storage.Enabled {
		if err := c.initStorage(); err != nil {
			// 清理已初始化的资源
			_ = c.Close()
			return nil, err
		}
	}

	c.initNotify()

	return c, nil
}

// initVenues 按固定顺序装配两个交易所的行情源
func (c *Container) initVenues() error {
	deps := pricefeed.BuildDeps{MaxStaleness: c.cfg.MaxStaleness()}

	venues := []struct {
		name string
		vcfg config.VenueConfig
	}{
		{"bybit", c.cfg.Venues.Bybit},
		{"hyperliquid", c.cfg.Venues.Hyperliquid},
	}

	for _, v := range venues {
		builder, ok := pricefeed.Get(v.name)
		if !ok {
			return fmt.Errorf("venue %s not registered", v.name)
		}
		feeds, err := builder(v.vcfg, deps)
		if err != nil {
			return fmt.Errorf("build venue %s: %w", v.name, err)
		}
		if feeds.Source == nil {
			return fmt.Errorf("venue %s has no price source", v.name)
		}

		c.sources = append(c.sources, feeds.Source)
		if feeds.Lister != nil {
			c.listers = append(c.listers, feeds.Lister)
		}
		if feeds.Feed != nil {
			c.feeds = append(c.feeds, feeds.Feed)
		}

		log.Info().
			Str("venue", v.name).
			Str("feed", v.vcfg.Feed).
			Msg("venue initialized")
	}

	return nil
}

// initStorage 初始化存储层（SQLite、Postgres、Redis）
func (c *Container) initStorage() error {
	if c.cfg.Storage.SQLite.Enabled {
		if err := c.initSQLite(); err != nil {
			return fmt.Errorf("sqlite init failed: %w", err)
		}
	}

	if c.cfg.Storage.Postgres.Enabled {
		if err := c.initPostgres(); err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
	}

	if c.cfg.Storage.Redis.Enabled {
		if err := c.initRedis(); err != nil {
			return fmt.Errorf("redis init failed: %w", err)
		}
	}

	return nil
}

// initSQLite 初始化 SQLite 数据库
func (c *Container) initSQLite() error {
	repo, err := sqliterepo.New(c.cfg.Storage.SQLite.Path)
	if err != nil {
		return err
	}

	c.sqliteRepo = repo
	c.repos = append(c.repos, repo)

	// 注册关闭回调
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().
		Str("path", c.cfg.Storage.SQLite.Path).
		Msg("sqlite initialized")

	return nil
}

// initPostgres 初始化 Postgres 连接
func (c *Container) initPostgres() error {
	repo, err := postgresrepo.New(c.cfg.Storage.Postgres.DSN)
	if err != nil {
		return err
	}

	c.repos = append(c.repos, repo)

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing postgres connection")
		return repo.Close()
	})

	log.Info().Msg("postgres initialized")

	return nil
}

// initRedis 初始化 Redis 连接
func (c *Container) initRedis() error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.cfg.Storage.Redis.Addr,
		Password: c.cfg.Storage.Redis.Password,
		DB:       c.cfg.Storage.Redis.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.redisClient = rdb
	ttl := time.Duration(c.cfg.Storage.Redis.TTLSeconds) * time.Second

	c.repos = append(c.repos, redisrepo.New(
		rdb,
		c.cfg.Storage.Redis.Prefix,
		ttl,
		c.cfg.Storage.Redis.EventStream,
		c.cfg.Storage.Redis.EventChannel,
	))

	// 注册关闭回调
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", c.cfg.Storage.Redis.Addr).
		Int("db", c.cfg.Storage.Redis.DB).
		Msg("redis initialized")

	return nil
}

// initNotify 装配启用的告警出口
func (c *Container) initNotify() {
	if c.cfg.ConsoleSink() {
		c.sinks = append(c.sinks, console.NewSink())
	}
	if c.cfg.Notify.Telegram.Enabled {
		c.sinks = append(c.sinks, notify.NewTelegramSink(c.cfg.Notify.Telegram.Token, c.cfg.Notify.Telegram.ChatID))
	}
	if c.cfg.Notify.Discord.Enabled {
		c.sinks = append(c.sinks, notify.NewDiscordSink(c.cfg.Notify.Discord.WebhookURL))
	}

	for _, s := range c.sinks {
		log.Info().Str("sink", s.Name()).Msg("sink initialized")
	}
}

// Config 获取配置
func (c *Container) Config() *config.Config {
	return c.cfg
}

// Sources 获取行情源, 顺序固定为 bybit, hyperliquid
func (c *Container) Sources() []port.PriceSource {
	return c.sources
}

// Listers 获取交易对列举器
func (c *Container) Listers() []port.InstrumentLister {
	return c.listers
}

// Feeds 获取需要启动的流式行情
func (c *Container) Feeds() []port.StreamFeed {
	return c.feeds
}

// Repo 获取仓储, 未启用存储时返回 nil
func (c *Container) Repo() port.Repository {
	switch len(c.repos) {
	case 0:
		return nil
	case 1:
		return c.repos[0]
	default:
		return composite.New(c.repos...)
	}
}

// Sinks 获取告警出口
func (c *Container) Sinks() []port.Sink {
	return c.sinks
}

// RedisClient 获取 Redis 客户端
func (c *Container) RedisClient() *redis.Client {
	return c.redisClient
}

// SQLiteOpportunityRepo 获取 SQLite 机会查询仓储
func (c *Container) SQLiteOpportunityRepo() *sqliterepo.OpportunityRepo {
	if c.sqliteRepo == nil {
		return nil
	}
	return sqliterepo.NewOpportunityRepo(c.sqliteRepo.GetDB())
}

// Close 关闭所有资源（按后进先出顺序）
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Info().Msg("container closed")
	})
	return err
}
