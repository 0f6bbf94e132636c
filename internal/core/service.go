package core

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"acm/internal/host"
	"acm/internal/source"
	"acm/internal/source/makersuite"
	"acm/internal/source/openai"
	"acm/internal/source/tavern"
	"acm/internal/storage/cache"
	"acm/internal/storage/config"
	"acm/internal/storage/db"
)

// ServiceConfig holds configuration for the core service
type ServiceConfig struct {
	ConfigDir    string // Directory for config.yaml and settings.yaml
	DataDir      string // Directory for the secret vault database
	CacheDir     string // Directory for cached model listings
	HostSettings string // Host settings.json; overrides config.yaml when set
}

// Service wires the profile manager to storage, the vault, the model
// listers and the host
type Service struct {
	config   *config.Config
	db       *db.DB
	vault    *db.Vault
	cache    *cache.Cache
	registry *source.Registry
	host     *host.FileHost
	store    *config.Persister
	manager  *ProfileManager

	configDir string
	dataDir   string
	cacheDir  string
}

// NewService creates a new core service instance
func NewService(cfg ServiceConfig) (*Service, error) {
	// Load configuration
	appConfig, err := config.Load(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.HostSettings != "" {
		appConfig.HostSettings = cfg.HostSettings
	}

	// Open database
	dbPath := filepath.Join(cfg.DataDir, "acm.db")
	database, err := db.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	cacheDir := cfg.CacheDir
	if appConfig.CachePath != "" {
		cacheDir = appConfig.CachePath
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	registry := source.NewRegistry()
	registry.Register(openai.New(httpClient))
	registry.Register(makersuite.New(httpClient))

	// With a host URL the host lists models using the keys in its own vault
	var lister ModelLister = registry
	var checker host.Checker
	if appConfig.HostURL != "" {
		t := tavern.New(httpClient, appConfig.HostURL)
		lister, checker = t, t
	}

	s := &Service{
		config:    appConfig,
		db:        database,
		vault:     db.NewVault(database, false),
		cache:     cache.New(cacheDir, appConfig.ModelCacheTTL),
		registry:  registry,
		store:     config.NewPersister(cfg.ConfigDir, appConfig.PersistDelay),
		configDir: cfg.ConfigDir,
		dataDir:   cfg.DataDir,
		cacheDir:  cacheDir,
	}

	opts := ManagerOptions{
		Store:  s.store,
		Vault:  s.vault,
		Lister: lister,
		Cache:  s.cache,
		Locale: appConfig.Locale,
		Wait: WaitPolicy{
			InitialDelay: appConfig.PollInitialDelay,
			Interval:     appConfig.PollInterval,
			Attempts:     appConfig.PollAttempts,
		},
	}
	if appConfig.HostSettings != "" {
		var hostOpts []host.Option
		if checker != nil {
			hostOpts = append(hostOpts, host.WithChecker(checker))
		}
		s.host = host.NewFileHost(appConfig.HostSettings, hostOpts...)
		opts.State = s.host
		opts.Connector = s.host
	}

	s.manager, err = NewProfileManager(opts)
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	return s, nil
}

// Close flushes pending settings and releases the database
func (s *Service) Close() error {
	var firstErr error
	if s.manager != nil {
		if err := s.manager.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Profiles returns the profile manager
func (s *Service) Profiles() *ProfileManager {
	return s.manager
}

// Host returns the host adapter, or nil when no host settings are configured
func (s *Service) Host() *host.FileHost {
	return s.host
}

// Config returns the loaded application configuration
func (s *Service) Config() *config.Config {
	return s.config
}

// Registry returns the direct model listers
func (s *Service) Registry() *source.Registry {
	return s.registry
}

// Vault returns the secret vault
func (s *Service) Vault() *db.Vault {
	return s.vault
}

// ConfigDir returns the configuration directory
func (s *Service) ConfigDir() string {
	return s.configDir
}
