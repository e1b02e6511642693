package startup

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/repositories/contact"
	"github.com/Ramsey-B/clover/internal/repositories/sourcerecord"
	"github.com/Ramsey-B/clover/internal/repositories/touchpoint"
	"github.com/Ramsey-B/clover/pkg/attribution"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/graph"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/processor"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/resolver"
	"github.com/Ramsey-B/clover/pkg/routes/health"
	"github.com/Ramsey-B/clover/pkg/routes/stats"
	"github.com/Ramsey-B/clover/pkg/timeline"
)

// Build assembles the service dependency graph from configuration. Redis and
// the graph projection are optional; when disabled the resolver falls back to
// its in-process keyed lock and skips projection.
func Build(cfg config.Config, logger ectologger.Logger) *Startup {
	s := NewStartup(logger, cfg.StartupMaxAttempts)

	db := &DatabaseDependency{cfg: cfg, logger: logger}
	s.AddDependency(db)

	var rdb *RedisDependency
	if cfg.RedisEnabled {
		rdb = &RedisDependency{cfg: cfg, logger: logger}
		s.AddDependency(rdb)
	}

	var gdb *GraphDependency
	if cfg.GraphDBEnabled {
		gdb = &GraphDependency{cfg: cfg, logger: logger}
		s.AddDependency(gdb)
	}

	if cfg.KafkaConsumerEnabled {
		s.AddDependency(&ConsumersDependency{
			cfg:    cfg,
			logger: logger,
			db:     db,
			redis:  rdb,
			graph:  gdb,
		})
	}

	s.AddDependency(&ServerDependency{cfg: cfg, logger: logger, db: db, redis: rdb})

	return s
}

// DatabaseDependency connects the canonical store and runs migrations.
type DatabaseDependency struct {
	cfg    config.Config
	logger ectologger.Logger

	Instance *database.Instance
}

func (d *DatabaseDependency) GetName() string { return "database" }
func (d *DatabaseDependency) DependsOn() []string { return nil }

func (d *DatabaseDependency) Start(ctx context.Context) error {
	instance, err := database.Connect(database.Config{
		Driver:          d.cfg.DatabaseDriver,
		Host:            d.cfg.DatabaseHost,
		Port:            d.cfg.DatabasePort,
		UserName:        d.cfg.DatabaseUserName,
		Password:        d.cfg.DatabasePassword,
		Name:            d.cfg.DatabaseName,
		SSLMode:         d.cfg.DatabaseSSLMode,
		MaxOpenConns:    d.cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    d.cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: d.cfg.DatabaseConnMaxLifetime,
	}, d.logger)
	if err != nil {
		return err
	}
	d.Instance = instance

	migrations := database.NewMigrationService(d.logger, &database.MigrationConfig{
		FolderPath: d.cfg.DatabaseMigrationFolderPath,
		Version:    uint(d.cfg.DatabaseMigrationVersion),
		Force:      d.cfg.DatabaseMigrationForce,
	})
	return migrations.Migrate(d.cfg.DatabaseName, instance)
}

func (d *DatabaseDependency) Stop(ctx context.Context) error {
	if d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}

// RedisDependency connects the identity lock store.
type RedisDependency struct {
	cfg    config.Config
	logger ectologger.Logger

	Client *redis.Client
}

func (d *RedisDependency) GetName() string { return "redis" }
func (d *RedisDependency) DependsOn() []string { return nil }

func (d *RedisDependency) Start(ctx context.Context) error {
	client, err := redis.NewClient(redis.Config{
		Host:     d.cfg.RedisHost,
		Port:     d.cfg.RedisPort,
		Password: d.cfg.RedisPassword,
		DB:       d.cfg.RedisDB,
	}, d.logger)
	if err != nil {
		return err
	}
	d.Client = client
	return nil
}

func (d *RedisDependency) Stop(ctx context.Context) error {
	if d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// GraphDependency connects the dashboard graph projection target.
type GraphDependency struct {
	cfg    config.Config
	logger ectologger.Logger

	Client *graph.Client
}

func (d *GraphDependency) GetName() string { return "graph" }
func (d *GraphDependency) DependsOn() []string { return nil }

func (d *GraphDependency) Start(ctx context.Context) error {
	client, err := graph.NewClient(graph.Config{
		Host:     d.cfg.GraphDBHost,
		Port:     d.cfg.GraphDBPort,
		Username: d.cfg.GraphDBUser,
		Password: d.cfg.GraphDBPassword,
	}, d.logger)
	if err != nil {
		return err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		return err
	}
	d.Client = client
	return nil
}

func (d *GraphDependency) Stop(ctx context.Context) error {
	if d.Client == nil {
		return nil
	}
	return d.Client.Close(ctx)
}

// ConsumersDependency builds the resolution pipeline and starts the record
// and touch point consumers.
type ConsumersDependency struct {
	cfg    config.Config
	logger ectologger.Logger
	db     *DatabaseDependency
	redis  *RedisDependency
	graph  *GraphDependency

	producer    *kafka.Producer
	records     *kafka.Consumer
	touchPoints *kafka.Consumer
}

func (d *ConsumersDependency) GetName() string { return "consumers" }

func (d *ConsumersDependency) DependsOn() []string {
	deps := []string{"database"}
	if d.redis != nil {
		deps = append(deps, "redis")
	}
	if d.graph != nil {
		deps = append(deps, "graph")
	}
	return deps
}

func (d *ConsumersDependency) Start(ctx context.Context) error {
	contacts := contact.NewRepository(d.db.Instance, d.logger)
	records := sourcerecord.NewRepository(d.db.Instance, d.logger)
	touchPoints := touchpoint.NewRepository(d.db.Instance, d.logger)

	engine := matching.NewEngine(d.logger, matching.Config{
		NameSimilarityThreshold: d.cfg.NameSimilarityThreshold,
		NameSimilarityMetric:    d.cfg.NameSimilarityMetric,
	})

	var locker resolver.Locker
	if d.redis != nil {
		locker = redis.NewLocker(d.redis.Client, "", d.cfg.LockWaitTimeout)
	}

	threshold, ok := models.ParseConfidence(d.cfg.MergeThreshold)
	if !ok {
		return fmt.Errorf("unknown merge threshold %q", d.cfg.MergeThreshold)
	}

	d.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      d.cfg.KafkaBrokers,
		Topic:        d.cfg.KafkaOutputTopic,
		BatchSize:    d.cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(d.cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: d.cfg.KafkaRequiredAcks,
		Compression:  d.cfg.KafkaCompression,
	}, d.logger)

	res := resolver.NewResolver(d.logger, contacts, records, engine, locker, resolver.Config{
		MergeThreshold: threshold,
		LockTTL:        d.cfg.LockTTL,
		BatchWorkers:   d.cfg.BatchWorkerCount,
		MaxFailures:    d.cfg.MaxFailureDetails,
	}).
		WithPublisher(d.producer).
		WithRecorder(metrics.Recorder{})

	if d.graph != nil {
		res = res.WithProjector(graph.NewContactService(d.graph.Client, d.logger))
	}

	proc := processor.NewProcessor(d.logger, res, contacts, touchPoints)

	d.records = kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:       d.cfg.KafkaBrokers,
		Topic:         d.cfg.KafkaRecordsTopic,
		ConsumerGroup: d.cfg.KafkaConsumerGroup,
	}, d.logger, proc.HandleRecord)

	d.touchPoints = kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:       d.cfg.KafkaBrokers,
		Topic:         d.cfg.KafkaTouchPointsTopic,
		ConsumerGroup: d.cfg.KafkaTouchPointConsumerGroup,
	}, d.logger, proc.HandleTouchPoint)

	if err := d.records.Start(ctx); err != nil {
		return err
	}
	return d.touchPoints.Start(ctx)
}

func (d *ConsumersDependency) Stop(ctx context.Context) error {
	if d.records != nil {
		if err := d.records.Stop(); err != nil {
			return err
		}
	}
	if d.touchPoints != nil {
		if err := d.touchPoints.Stop(); err != nil {
			return err
		}
	}
	if d.producer != nil {
		return d.producer.Close()
	}
	return nil
}

// ServerDependency runs the operational HTTP surface (health, stats, and
// metrics).
type ServerDependency struct {
	cfg    config.Config
	logger ectologger.Logger
	db     *DatabaseDependency
	redis  *RedisDependency

	echo *echo.Echo
}

func (d *ServerDependency) GetName() string { return "server" }

func (d *ServerDependency) DependsOn() []string {
	deps := []string{"database"}
	if d.redis != nil {
		deps = append(deps, "redis")
	}
	return deps
}

func (d *ServerDependency) Start(ctx context.Context) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(otelecho.Middleware(d.cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(d.logger))
	e.HTTPErrorHandler = middleware.Error(d.logger)

	health.SetVersion(d.cfg.Version)
	healthHandler := health.NewHandler(d.db.Instance)
	if d.redis != nil {
		healthHandler = healthHandler.WithRedis(d.redis.Client)
	}
	healthHandler.Register(e)

	contacts := contact.NewRepository(d.db.Instance, d.logger)
	touchPoints := touchpoint.NewRepository(d.db.Instance, d.logger)
	aggregator := attribution.NewAggregator(d.logger, contacts, timeline.NewBuilder(d.logger, touchPoints))
	stats.NewHandler(d.logger, contacts, aggregator, attribution.Options{
		SampleSize:  d.cfg.StatsSampleSize,
		Budget:      d.cfg.StatsBudget,
		MaxFailures: d.cfg.MaxFailureDetails,
	}).Register(e)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	d.echo = e

	go func() {
		addr := fmt.Sprintf(":%d", d.cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			d.logger.WithError(err).Error("HTTP server stopped")
		}
	}()

	health.SetReady(true)
	d.logger.Infof("HTTP server listening on :%d", d.cfg.Port)
	return nil
}

func (d *ServerDependency) Stop(ctx context.Context) error {
	health.SetReady(false)
	if d.echo == nil {
		return nil
	}
	return d.echo.Shutdown(ctx)
}
