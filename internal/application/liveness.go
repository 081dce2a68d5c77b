package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/logging"
	"github.com/wms-platform/asrs-service/pkg/metrics"
)

// MonitorConfig controls the stalled command scan
type MonitorConfig struct {
	StallThreshold time.Duration `mapstructure:"stallThreshold"`
	Interval       time.Duration `mapstructure:"interval"`
}

// DefaultMonitorConfig returns the default scan settings
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		StallThreshold: 5 * time.Minute,
		Interval:       30 * time.Second,
	}
}

// StalledCommandMonitor reports commands stuck in EXECUTING. It only reports;
// an operator decides how to recover the robot.
type StalledCommandMonitor struct {
	commands domain.CommandRepository
	config   MonitorConfig
	metrics  *metrics.Metrics
	logger   *logging.Logger

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewStalledCommandMonitor creates a new StalledCommandMonitor. m may be nil.
func NewStalledCommandMonitor(commands domain.CommandRepository, config MonitorConfig, m *metrics.Metrics, logger *logging.Logger) *StalledCommandMonitor {
	defaults := DefaultMonitorConfig()
	if config.StallThreshold <= 0 {
		config.StallThreshold = defaults.StallThreshold
	}
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	return &StalledCommandMonitor{
		commands: commands,
		config:   config,
		metrics:  m,
		logger:   logger.WithComponent("stalled-command-monitor"),
	}
}

// Start runs the scan loop until Stop or ctx ends
func (m *StalledCommandMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("monitor already running")
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.stoppedCh = make(chan struct{})

	m.logger.Info("Starting stalled command monitor", "threshold", m.config.StallThreshold, "interval", m.config.Interval)
	go m.run(ctx, m.stopCh, m.stoppedCh)
	return nil
}

// Stop ends the scan loop and waits for it to exit
func (m *StalledCommandMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stopCh, stoppedCh := m.stopCh, m.stoppedCh
	m.mu.Unlock()

	close(stopCh)
	<-stoppedCh
}

func (m *StalledCommandMonitor) run(ctx context.Context, stopCh <-chan struct{}, stoppedCh chan<- struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.CheckOnce(ctx); err != nil {
				m.logger.WithError(err).Error("Failed to scan for stalled commands")
			}
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// CheckOnce scans once and returns the stalled commands
func (m *StalledCommandMonitor) CheckOnce(ctx context.Context) ([]*domain.Command, error) {
	cutoff := time.Now().UTC().Add(-m.config.StallThreshold)
	stalled, err := m.commands.FindExecutingSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to find executing commands: %w", err)
	}

	for _, cmd := range stalled {
		var running time.Duration
		if cmd.StartedAt != nil {
			running = time.Since(*cmd.StartedAt)
		}
		m.logger.Warn("Command stalled",
			"commandId", cmd.ID,
			"robotId", cmd.RobotID,
			"type", cmd.Type,
			"runningFor", running.Round(time.Second),
		)
	}

	if m.metrics != nil {
		m.metrics.SetStalledCommands(len(stalled))
	}
	return stalled, nil
}
