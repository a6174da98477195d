package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Aryan20apr/PulseChat/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Supported backends.
const (
	BackendRedis  = "redis"
	BackendNATS   = "nats"
	BackendMemory = "memory"
)

// Config selects and configures the relay bus backend.
type Config struct {
	Backend string
	Redis   RedisConfig
	NATSURL string
}

// Module owns the process-wide relay bus. It publishes locally originated
// events and delivers every event received on the bus, including this
// process's own, through a single wildcard subscription.
type Module struct {
	cfg      Config
	listener *Listener
	logger   types.Logger

	mu      sync.RWMutex
	bus     Bus
	ownsBus bool
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a relay module that dials the configured backend on Start.
func NewModule(cfg Config, deliverer Deliverer, logger types.Logger) *Module {
	return &Module{
		cfg:      cfg,
		listener: NewListener(deliverer, logger),
		logger:   logger,
		ownsBus:  true,
	}
}

// NewModuleWithBus creates a relay module on an existing bus. The bus is not
// closed on Stop, so several modules can share it.
func NewModuleWithBus(bus Bus, deliverer Deliverer, logger types.Logger) *Module {
	return &Module{
		cfg:      Config{Backend: BackendMemory},
		listener: NewListener(deliverer, logger),
		logger:   logger,
		bus:      bus,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "relay"
}

// Start connects the bus if needed and subscribes to every room channel.
func (m *Module) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bus == nil {
		bus, err := m.dial(ctx)
		if err != nil {
			return err
		}
		m.bus = bus
	}

	if err := m.bus.Subscribe(ctx, ChannelPattern, m.listener.Handle); err != nil {
		if m.ownsBus {
			_ = m.bus.Close()
			m.bus = nil
		}
		return fmt.Errorf("failed to subscribe to room channels: %w", err)
	}

	m.logger.Info("Relay module started", "backend", m.cfg.Backend, "pattern", ChannelPattern)
	return nil
}

func (m *Module) dial(ctx context.Context) (Bus, error) {
	switch m.cfg.Backend {
	case BackendRedis:
		client, err := DialRedis(ctx, m.cfg.Redis)
		if err != nil {
			return nil, err
		}
		m.logger.Info("Connected to Redis", "addr", m.cfg.Redis.Addr, "db", m.cfg.Redis.DB)
		return NewRedisBus(client, m.logger), nil
	case BackendNATS:
		nc, err := DialNATS(m.cfg.NATSURL)
		if err != nil {
			return nil, err
		}
		m.logger.Info("Connected to NATS", "url", m.cfg.NATSURL)
		return NewNATSBus(nc, m.logger), nil
	case BackendMemory:
		m.logger.Warn("Using in-memory relay bus; events are not shared with other processes")
		return NewMemoryBus(m.logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, m.cfg.Backend)
	}
}

// Stop closes the bus if this module opened it.
func (m *Module) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bus != nil && m.ownsBus {
		if err := m.bus.Close(); err != nil {
			m.logger.Error("Error closing relay bus", "error", err)
			return fmt.Errorf("failed to close relay bus: %w", err)
		}
		m.bus = nil
	}
	m.logger.Info("Relay module stopped")
	return nil
}

// Publish serializes event and publishes it to the event's room channel.
// It does not wait for delivery.
func (m *Module) Publish(ctx context.Context, event chat.Event) error {
	m.mu.RLock()
	bus := m.bus
	m.mu.RUnlock()

	if bus == nil {
		return ErrBusUnavailable
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: marshal %s event: %w", ErrPublish, event.EventType(), err)
	}

	channel := RoomChannel(event.Room())
	if err := bus.Publish(ctx, channel, data); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublish, channel, err)
	}

	m.logger.Debug("Published event", "channel", channel, "type", event.EventType())
	return nil
}

// Health returns the health status.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	m.mu.RLock()
	bus := m.bus
	m.mu.RUnlock()

	details := map[string]any{"backend": m.cfg.Backend}
	if bus == nil {
		return mono.HealthStatus{Healthy: false, Message: "not connected", Details: details}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := bus.Ping(ctx); err != nil {
		details["error"] = err.Error()
		return mono.HealthStatus{Healthy: false, Message: "relay bus unreachable", Details: details}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational", Details: details}
}
