package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"

	"github.com/zooarc/menagerie/alert"
	"github.com/zooarc/menagerie/api"
	"github.com/zooarc/menagerie/audit"
	"github.com/zooarc/menagerie/cache/redis"
	"github.com/zooarc/menagerie/conf"
	"github.com/zooarc/menagerie/database/mysql"
	"github.com/zooarc/menagerie/database/postgres"
	"github.com/zooarc/menagerie/logger"
	"github.com/zooarc/menagerie/metrics"
	"github.com/zooarc/menagerie/middleware"
	"github.com/zooarc/menagerie/mq"
	"github.com/zooarc/menagerie/privops"
	"github.com/zooarc/menagerie/records"
	"github.com/zooarc/menagerie/shutdown"
	"github.com/zooarc/menagerie/tenant"
	transporthttp "github.com/zooarc/menagerie/transport/http"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	// registers the kafka producer factory
	_ "github.com/zooarc/menagerie/mq/kafka"
)

/* ========================================================================
 * Menagerie server
 * ========================================================================
 * Multi-tenant zoo records with a privileged operator console and an
 * append-only audit ledger.
 * ======================================================================== */

func main() {
	configPath := flag.String("config", "./config", "directory holding config.yaml")
	flag.Parse()

	cfg, err := conf.LoadApp(*configPath, "config", "yaml")
	if err != nil {
		stdlog.Fatalf("load config: %v", err)
	}

	var sd *shutdown.Manager
	app := fx.New(
		fx.Supply(cfg),
		fx.Provide(
			func(c *conf.AppConfig) logger.Config { return c.Logger },
			func(c *conf.AppConfig) transporthttp.Config { return c.Server },
			func(c *conf.AppConfig) redis.Config { return c.Redis },
			logger.NewLogger,
			newDatabase,
			redis.NewClient,
			newProducer,
			newAlerter,
			newLedger,
			newRecorder,
			newDirectory,
			tenant.NewResolver,
			newManager,
			newRecordsService,
			newHandlers,
			func(log *logger.Logger) fiber.ErrorHandler { return middleware.NewErrorHandler(log) },
			transporthttp.NewHTTPServer,
			newShutdownConfig,
			shutdown.NewManager,
		),
		fx.Invoke(
			migrate,
			initRateLimiter,
			registerRoutes,
			registerShutdownHooks,
		),
		fx.Populate(&sd),
	)

	if err := app.Start(context.Background()); err != nil {
		stdlog.Fatalf("start: %v", err)
	}

	// the last hook stops the fx app, closing the HTTP listener and the
	// database pool after the audit queue has drained
	sd.RegisterHookWithPriority("fx-app", func(ctx context.Context) error {
		return app.Stop(ctx)
	}, shutdown.PriorityLast)

	sd.Wait()
}

func newShutdownConfig(cfg *conf.AppConfig) *shutdown.Config {
	if cfg.Shutdown.Timeout <= 0 {
		return shutdown.DefaultConfig()
	}
	sc := cfg.Shutdown
	return &sc
}

func newDatabase(cfg *conf.AppConfig, log *logger.Logger) (*gorm.DB, error) {
	switch cfg.Database.Driver {
	case "mysql":
		return mysql.NewDB(cfg.Database.MySQL, log)
	case "", "postgres":
		return postgres.NewDB(cfg.Database.Postgres, log)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// newProducer builds the broker producer, or nothing when no broker is
// configured. Alerting then degrades to structured logs.
func newProducer(lc fx.Lifecycle, cfg *conf.AppConfig, log *logger.Logger) (mq.Producer, error) {
	if cfg.MQ.Kafka == nil || len(cfg.MQ.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := mq.NewProducer(&cfg.MQ, log.Logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})
	return producer, nil
}

func newAlerter(producer mq.Producer, cfg *conf.AppConfig, log *logger.Logger) audit.Alerter {
	if producer == nil {
		return alert.NewLogAlerter(log)
	}
	return alert.NewBrokerAlerter(producer, cfg.Alert, log)
}

func newLedger(db *gorm.DB, cfg *conf.AppConfig, log *logger.Logger) (*audit.Ledger, error) {
	return audit.NewLedger(db, cfg.Audit.Secret, log)
}

func newRecorder(lc fx.Lifecycle, ledger *audit.Ledger, alerter audit.Alerter, log *logger.Logger) *audit.Recorder {
	recorder := audit.NewRecorder(ledger, alerter, log)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			recorder.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			recorder.Stop()
			return nil
		},
	})
	return recorder
}

func newDirectory(db *gorm.DB, log *logger.Logger) *tenant.Directory {
	return tenant.NewDirectory(db, log)
}

func newManager(db *gorm.DB, dir *tenant.Directory, recorder *audit.Recorder, cfg *conf.AppConfig, log *logger.Logger) *privops.Manager {
	return privops.NewManager(db, dir, recorder, cfg.Session, log)
}

func newRecordsService(db *gorm.DB, recorder *audit.Recorder, log *logger.Logger) *records.Service {
	return records.NewService(db, recorder, log)
}

func newHandlers(mgr *privops.Manager, dir *tenant.Directory, ledger *audit.Ledger, recorder *audit.Recorder, svc *records.Service, log *logger.Logger) *api.Handlers {
	return api.NewHandlers(mgr, dir, ledger, recorder, svc, log)
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&tenant.Tenant{},
		&privops.Operator{},
		&privops.Session{},
		&audit.Entry{},
		&records.Specimen{},
	)
}

func initRateLimiter(client *redis.Client, log *logger.Logger) {
	if client == nil {
		return
	}
	if err := middleware.InitRateLimiter(client.Raw()); err != nil {
		log.Warn("redis rate limiter unavailable, using in-memory fallback", zap.Error(err))
	}
}

func registerRoutes(app *fiber.App, h *api.Handlers, resolver *tenant.Resolver, cfg *conf.AppConfig, log *logger.Logger) {
	app.Use(metrics.HTTPMetricsMiddleware(nil))

	verifier := middleware.NewPrincipalVerifier(cfg.Principal, log)
	app.Use(verifier.Authenticate())

	api.RegisterRoutes(app, h, resolver)
}

// registerShutdownHooks drains the audit retry queue before anything
// else is torn down; fx lifecycle stop hooks handle the rest.
func registerShutdownHooks(sd *shutdown.Manager, recorder *audit.Recorder) {
	sd.RegisterHookWithPriority("audit-recorder", func(ctx context.Context) error {
		recorder.Stop()
		return nil
	}, shutdown.PriorityFirst)
}
