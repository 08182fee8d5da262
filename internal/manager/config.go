package manager

import (
	"time"

	"github.com/rs/zerolog"

	"chatd/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultHost           = "http://localhost:11434"
	defaultBinary         = "ollama"
	defaultProbeTimeout   = 5 * time.Second
	defaultRequestTimeout = 300 * time.Second
	defaultPullTimeout    = 30 * time.Minute
	defaultStartGrace     = 5 * time.Second
	defaultModelName      = "llama3.2"
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Host is the runtime base URL, e.g. http://localhost:11434.
	Host string
	// Binary is the executable started by the default launcher.
	Binary string

	ProbeTimeout   time.Duration
	RequestTimeout time.Duration
	PullTimeout    time.Duration
	// StartGrace is how long EnsureRunning waits after launching before it
	// re-probes the runtime. Negative disables the wait.
	StartGrace time.Duration

	DefaultModel string
	Params       InferParams
	// Preferences maps a task name to candidate models in priority order.
	Preferences map[string][]string

	// Launcher overrides how the runtime process is started (tests).
	Launcher  Launcher
	Publisher EventPublisher
	Logger    *zerolog.Logger
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.Binary == "" {
		cfg.Binary = defaultBinary
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.PullTimeout <= 0 {
		cfg.PullTimeout = defaultPullTimeout
	}
	if cfg.StartGrace < 0 {
		cfg.StartGrace = 0
	} else if cfg.StartGrace == 0 {
		cfg.StartGrace = defaultStartGrace
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = defaultModelName
	}
	cfg.Params = cfg.Params.withDefaults()

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	m := &Manager{
		cfg:       cfg,
		status:    types.RuntimeUnknown,
		cur:       cfg.DefaultModel,
		client:    newRuntimeClient(cfg.Host),
		launcher:  cfg.Launcher,
		publisher: cfg.Publisher,
		log:       logger.With().Str("component", "manager").Logger(),
		startTime: time.Now(),
	}
	if m.launcher == nil {
		m.launcher = NewExecLauncher(cfg.Binary, cfg.Host)
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	return m
}
