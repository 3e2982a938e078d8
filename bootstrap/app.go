package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"argus/config"
	"argus/core"
	"argus/detect"
	"argus/metrics"
	"argus/storage"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// App holds the assembled Argus components.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	SQLite      *storage.SQLite
	RuleStorage *storage.SQLiteRuleStorage
	Mongo       *storage.MongoDB
	MongoRules  *storage.MongoRuleStorage
	Cache       *core.ResultCache

	RuleStore      *storage.RuleStore
	IndicatorStore *storage.IndicatorStore
	Engine         *detect.Engine
}

// NewApp loads configuration from the given path (empty means defaults plus
// environment) and initializes all components.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewAppWithConfig(ctx, cfg)
}

// NewAppWithConfig initializes all components from an already-loaded
// configuration.
func NewAppWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	sugar := logger.Sugar()

	app := &App{
		Config: cfg,
		Logger: logger,
		Sugar:  sugar,
	}

	// Storage
	sqlite, err := storage.NewSQLite(cfg.DataPaths.SQLitePath, sugar)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite storage: %w", err)
	}
	app.SQLite = sqlite
	app.RuleStorage = storage.NewSQLiteRuleStorage(sqlite, sugar)

	// Optional MongoDB rule storage, used as an additional hydration source
	if cfg.MongoDB.Enabled {
		mongo, err := storage.NewMongoDB(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database)
		if err != nil {
			app.Shutdown()
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		app.Mongo = mongo
		app.MongoRules = storage.NewMongoRuleStorage(mongo)
	}

	// Optional Redis result cache
	if cfg.Redis.Enabled {
		app.Cache = core.NewResultCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, sugar)
		if err := app.Cache.Ping(ctx); err != nil {
			app.Shutdown()
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Redis.Addr, err)
		}
	}

	// Engine
	app.RuleStore = storage.NewRuleStore()
	app.IndicatorStore = storage.NewIndicatorStore()
	conditions := detect.NewConditionEvaluator(cfg.RegexTimeout(), sugar)
	app.Engine = detect.NewEngine(app.RuleStore, app.IndicatorStore, conditions, sugar)

	if err := app.hydrateRules(); err != nil {
		app.Shutdown()
		return nil, err
	}

	return app, nil
}

// hydrateRules loads persisted rules and any rule files from the rules
// directory into the in-memory rule store.
func (a *App) hydrateRules() error {
	persisted, err := a.RuleStorage.GetAllRules()
	if err != nil {
		return fmt.Errorf("failed to load persisted rules: %w", err)
	}
	for _, rule := range persisted {
		if err := a.RuleStore.Add(rule); err != nil {
			a.Sugar.Warnf("Skipping persisted rule %s: %v", rule.ID, err)
		}
	}

	if a.MongoRules != nil {
		remote, err := a.MongoRules.GetRules()
		if err != nil {
			return fmt.Errorf("failed to load rules from MongoDB: %w", err)
		}
		for _, rule := range remote {
			if err := a.RuleStore.Add(rule); err != nil {
				a.Sugar.Warnf("Skipping MongoDB rule %s: %v", rule.ID, err)
			}
		}
	}

	if entries, err := os.ReadDir(a.Config.DataPaths.RulesDir); err == nil {
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !isRuleFile(name) {
				continue
			}
			rules, err := detect.LoadRules(filepath.Join(a.Config.DataPaths.RulesDir, name), a.Sugar)
			if err != nil {
				a.Sugar.Errorf("Failed to load rule file %s: %v", name, err)
				continue
			}
			for _, rule := range rules {
				if err := a.RuleStore.Add(rule); err != nil {
					a.Sugar.Warnf("Skipping rule %s from %s: %v", rule.ID, name, err)
				}
			}
		}
	}

	metrics.RulesLoaded.Set(float64(a.RuleStore.Count()))
	a.Sugar.Infof("Hydrated %d rules into the rule store", a.RuleStore.Count())
	return nil
}

// isRuleFile reports whether a filename looks like a rule file.
func isRuleFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".json")
}

// Shutdown releases all resources. Safe to call on a partially-initialized
// App.
func (a *App) Shutdown() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Sugar.Warnf("Failed to close Redis cache: %v", err)
		}
	}
	if a.Mongo != nil {
		if err := a.Mongo.Close(context.Background()); err != nil {
			a.Sugar.Warnf("Failed to disconnect MongoDB: %v", err)
		}
	}
	if a.SQLite != nil {
		if err := a.SQLite.Close(); err != nil {
			a.Sugar.Warnf("Failed to close SQLite: %v", err)
		}
	}
	_ = a.Logger.Sync()
}

// buildLogger constructs a production zap logger at the configured level.
func buildLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	return cfg.Build()
}
