package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PBot/data/database/mgo/mongoutil"
	"PBot/global/config"
	"PBot/logger"
	"PBot/module/bot/controller"
	"PBot/module/bot/model"
	"PBot/module/bot/repository"
	"PBot/service/discord"
	"PBot/service/events"
	"PBot/service/httpapi"
	"PBot/service/lock"
	redis "PBot/service/storage/redis"
	"PBot/tools/errs"
	"PBot/tools/ids"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	var path string
	root := &cobra.Command{
		Use:           "pbot",
		Short:         "discord bot for posting, liking and bookmarking contents",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), path)
		},
	}
	root.PersistentFlags().StringVarP(&path, "config", "c", "", "config file (default $PBOT_CONFIG or ./config.yaml)")
	root.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "validate the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if cfg.Repository.Backend == config.BackendMongo {
				ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Repository.Timeout)
				defer cancel()
				if err := mongoutil.Check(ctx, &cfg.Repository.Mongo); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config ok: repository=%s lock=%s events=%s\n",
				cfg.Repository.Backend, cfg.Lock.Backend, cfg.Events.Backend)
			return nil
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "pbot: %+v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log); err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment}); err != nil {
			return errs.WrapMsg(err, "init sentry")
		}
		defer sentry.Flush(2 * time.Second)
	}

	store, err := openStore(ctx, cfg.Repository)
	if err != nil {
		return err
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(cctx); err != nil {
			logger.Warn("close repository", zap.Error(err))
		}
	}()

	locker, err := newLocker(ctx, cfg.Lock)
	if err != nil {
		return err
	}
	defer func() { _ = redis.CloseRedis() }()

	pub, err := newPublisher(cfg.Events)
	if err != nil {
		return err
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Warn("close publisher", zap.Error(err))
		}
	}()

	// 网关依赖 controller，resolver 又依赖网关的 session，先建 controller 再回填
	var resolver lazyResolver
	ctl := controller.New(store, controller.Options{
		Prefix:    cfg.Discord.Prefix,
		Timeout:   cfg.Repository.Timeout,
		Locker:    locker,
		Resolver:  &resolver,
		Publisher: pub,
	})
	gw, err := discord.New(discord.Options{
		Token: cfg.Discord.Token,
		Rate:  cfg.Discord.Rate,
		Burst: cfg.Discord.Burst,
	}, ctl, ids.NewCounter("task-"))
	if err != nil {
		return err
	}
	resolver.Resolver = discord.NewResolver(gw.Session())

	logger.Info("pbot starting",
		zap.String("repository", store.Backend),
		zap.String("lock", cfg.Lock.Backend),
		zap.String("events", cfg.Events.Backend),
		zap.Duration("timeout", cfg.Repository.Timeout),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return gw.Run(ctx) })
	if cfg.HTTP.Addr != "" {
		srv := httpapi.NewServer(cfg.HTTP.Addr, httpapi.NewRouter(store.Backend, store))
		g.Go(func() error { return srv.Run(ctx) })
	}
	err = g.Wait()
	logger.Info("pbot stopped", zap.Error(err))
	return err
}

func openStore(ctx context.Context, c config.RepositoryConfig) (*repository.Store, error) {
	if c.Backend != config.BackendMongo {
		return repository.NewMemStore(), nil
	}
	cli, err := mongoutil.NewMongoDB(ctx, &c.Mongo)
	if err != nil {
		return nil, err
	}
	ictx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := repository.EnsureIndexes(ictx, cli.GetDB()); err != nil {
		_ = cli.Close(context.Background())
		return nil, err
	}
	return repository.NewMongoStore(cli), nil
}

func newLocker(ctx context.Context, c config.LockConfig) (lock.Locker, error) {
	if c.Backend != config.LockRedis {
		return lock.NewLocal(), nil
	}
	if err := redis.InitRedis(ctx, c.Redis); err != nil {
		return nil, err
	}
	return lock.NewRedis(redis.GetRedis(), c.Prefix, c.TTL), nil
}

func newPublisher(c config.EventsConfig) (events.Publisher, error) {
	switch c.Backend {
	case config.EventsNats:
		p, err := events.NewNats(c.Nats)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.EventsKafka:
		p, err := events.NewKafka(c.Kafka)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return events.Nop{}, nil
}

// lazyResolver 启动期间 session 尚未创建时拒绝解析
type lazyResolver struct {
	*discord.Resolver
}

func (r *lazyResolver) Resolve(ctx context.Context, guildID string, id model.UserID) (controller.Profile, error) {
	if r.Resolver == nil {
		return controller.Profile{}, errs.New("profile resolver not ready")
	}
	return r.Resolver.Resolve(ctx, guildID, id)
}
