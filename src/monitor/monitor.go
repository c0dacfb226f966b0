package monitor

import (
	"fmt"
	"sort"
	"sync"

	"network-monitor/src/config"
	"network-monitor/src/factories"
	"network-monitor/src/fetch"
	"network-monitor/src/interfaces"
	"network-monitor/src/logger"
	"network-monitor/src/models"
	"network-monitor/src/publishers"
	"network-monitor/src/serializers"
)

// -----------------------------------------------------------------------------
// Monitor owns every monitored endpoint
// -----------------------------------------------------------------------------

type Monitor struct {
	Name   string
	Config *config.Config
	Logger *logger.Logger

	// Publisher distributes events; nil when NATS is disabled.
	Publisher interfaces.IPublisher
	Factory   *factories.EndpointFactory
	// Health is told about every connection state change; may be nil.
	Health interfaces.IHealthReporter
	// Observer receives every event after it was published; may be nil.
	Observer func(*models.MNetworkEvent)

	// Layout holds the parsed network layout, empty when none is configured.
	Layout map[string]any

	Sources map[string]interfaces.IEndpointSource
	open    map[string]bool
	running bool
	mu      sync.RWMutex
}

// -----------------------------------------------------------------------------

// NewMonitor wires the publisher and factory described by config.
func NewMonitor(config *config.Config, logger *logger.Logger) (*Monitor, error) {
	m := &Monitor{
		Name:    "NetworkMonitor",
		Config:  config,
		Logger:  logger,
		Factory: factories.NewEndpointFactory(config, logger),
		Layout:  map[string]any{},
		Sources: make(map[string]interfaces.IEndpointSource),
		open:    make(map[string]bool),
	}

	if config.NATS.Enabled {
		serializer, err := serializers.NewSerializer(config.NATS.Serializer)
		if err != nil {
			return nil, fmt.Errorf("failed to create publisher serializer: %w", err)
		}
		m.Publisher = publishers.NewNATSPublisher(&config.NATS, logger, serializer)
	}
	return m, nil
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start connects the publisher, loads the network layout and starts every
// configured endpoint. Connections are established in the background.
func (m *Monitor) Start() error {
	m.Logger.Info("%s : starting network monitor", m.Name)

	if m.Publisher != nil {
		if err := m.Publisher.Connect(); err != nil {
			return fmt.Errorf("failed to connect to publisher: %w", err)
		}
	}

	if err := m.loadLayout(); err != nil {
		return err
	}

	if err := m.createAllSources(); err != nil {
		return fmt.Errorf("failed to create endpoint sources: %w", err)
	}

	m.mu.Lock()
	m.running = true
	sources := m.snapshot()
	m.mu.Unlock()

	m.setOverallHealth()
	for _, source := range sources {
		if err := source.Start(); err != nil {
			m.Logger.Error("%s : endpoint %s startup error: %v", m.Name, source.GetName(), err)
		}
	}

	m.Logger.Info("%s : monitoring %d endpoints", m.Name, len(sources))
	return nil
}

// -----------------------------------------------------------------------------

// Stop closes every connection concurrently, waits for them, then disconnects
// the publisher.
func (m *Monitor) Stop() error {
	m.Logger.Info("%s : stopping network monitor", m.Name)

	m.mu.Lock()
	m.running = false
	sources := m.snapshot()
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, source := range sources {
		wg.Add(1)
		go func(s interfaces.IEndpointSource) {
			defer wg.Done()
			if err := s.Stop(); err != nil {
				m.Logger.Warning("%s : %v", m.Name, err)
			}
		}(source)
	}
	wg.Wait()

	if m.Publisher != nil {
		if err := m.Publisher.Disconnect(); err != nil {
			m.Logger.Error("%s : failed to disconnect publisher: %v", m.Name, err)
		}
	}

	m.setOverallHealth()
	m.Logger.Info("%s : network monitor stopped", m.Name)
	return nil
}

// -----------------------------------------------------------------------------
// Dynamic endpoint management
// -----------------------------------------------------------------------------

// AddEndpoint registers a new endpoint; it is started at once when the monitor
// is running.
func (m *Monitor) AddEndpoint(endpoint *models.MEndpointConfig) error {
	if endpoint == nil {
		return fmt.Errorf("endpoint config is nil")
	}

	m.mu.RLock()
	_, exists := m.Sources[endpoint.Name]
	m.mu.RUnlock()
	if exists {
		return fmt.Errorf("endpoint '%s' is already registered", endpoint.Name)
	}

	source, err := m.newSource(endpoint)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if _, exists := m.Sources[endpoint.Name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("endpoint '%s' is already registered", endpoint.Name)
	}
	m.Sources[endpoint.Name] = source
	running := m.running
	m.mu.Unlock()

	m.Logger.Info("%s : endpoint '%s' added", m.Name, endpoint.Name)
	m.setOverallHealth()

	if running {
		return source.Start()
	}
	return nil
}

// -----------------------------------------------------------------------------

// RemoveEndpoint stops the endpoint's connection and forgets it.
func (m *Monitor) RemoveEndpoint(name string) error {
	m.mu.Lock()
	source, exists := m.Sources[name]
	delete(m.Sources, name)
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("endpoint '%s' not found", name)
	}

	err := source.Stop()

	m.mu.Lock()
	delete(m.open, name)
	m.mu.Unlock()
	if m.Health != nil {
		m.Health.SetServingStatus(name, false)
	}
	m.setOverallHealth()

	m.Logger.Info("%s : endpoint '%s' removed", m.Name, name)
	return err
}

// -----------------------------------------------------------------------------

// ListEndpoints returns the registered endpoint names in sorted order.
func (m *Monitor) ListEndpoints() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.Sources))
	for name := range m.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// -----------------------------------------------------------------------------

// GetEndpointStatus returns the status of one configured endpoint.
func (m *Monitor) GetEndpointStatus(name string) (*models.MConnectionStatus, error) {
	m.mu.RLock()
	source, ok := m.Sources[name]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("endpoint '%s' not found", name)
	}
	return source.GetStatus(), nil
}

// -----------------------------------------------------------------------------

// Send queues payload on the named endpoint's connection.
func (m *Monitor) Send(name, payload string) error {
	m.mu.RLock()
	source, ok := m.Sources[name]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("endpoint '%s' not found", name)
	}
	return source.Send(payload)
}

// -----------------------------------------------------------------------------
// Private helpers
// -----------------------------------------------------------------------------

// loadLayout downloads and parses the network layout when one is configured.
func (m *Monitor) loadLayout() error {
	layout := m.Config.Layout
	if layout == nil || layout.URL == "" {
		return nil
	}

	m.Logger.Info("%s : downloading network layout from %s", m.Name, layout.URL)
	if !fetch.DownloadFile(layout.URL, layout.Destination, layout.CACertFile) {
		return fmt.Errorf("failed to download network layout from %s", layout.URL)
	}

	parsed := fetch.ParseJSONFile(layout.Destination)
	if len(parsed) == 0 {
		m.Logger.Warning("%s : network layout %s is empty or not a JSON object", m.Name, layout.Destination)
	}

	m.mu.Lock()
	m.Layout = parsed
	m.mu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------

func (m *Monitor) createAllSources() error {
	created := make(map[string]interfaces.IEndpointSource, len(m.Config.Endpoints))
	for _, endpoint := range m.Config.Endpoints {
		source, err := m.newSource(endpoint)
		if err != nil {
			m.Logger.Error("%s : skipping endpoint: %v", m.Name, err)
			continue
		}
		created[endpoint.Name] = source
	}

	m.mu.Lock()
	for name, source := range created {
		if _, exists := m.Sources[name]; !exists {
			m.Sources[name] = source
		}
	}
	total := len(m.Sources)
	m.mu.Unlock()

	if total == 0 {
		return fmt.Errorf("no valid endpoints were initialized from configuration")
	}
	return nil
}

// -----------------------------------------------------------------------------

func (m *Monitor) newSource(endpoint *models.MEndpointConfig) (*EndpointSource, error) {
	protocol, client, err := m.Factory.CreateProtocolWithConnection(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create endpoint %s: %w", endpoint.Name, err)
	}
	return &EndpointSource{
		Name:     endpoint.Name,
		Logger:   m.Logger,
		Protocol: protocol,
		Client:   client,
		OnEvent:  m.onEvent,
		OnHealth: m.onHealth,
	}, nil
}

// -----------------------------------------------------------------------------

func (m *Monitor) onEvent(event *models.MNetworkEvent) {
	if m.Publisher != nil {
		m.Publisher.OnNetworkEvent(event)
	}
	if m.Observer != nil {
		m.Observer(event)
	}
}

// -----------------------------------------------------------------------------

func (m *Monitor) onHealth(name string, open bool) {
	m.mu.Lock()
	if _, tracked := m.Sources[name]; !tracked {
		m.mu.Unlock()
		return
	}
	m.open[name] = open
	m.mu.Unlock()

	if m.Health != nil {
		m.Health.SetServingStatus(name, open)
	}
	m.setOverallHealth()
}

// -----------------------------------------------------------------------------

// setOverallHealth reports SERVING only while the monitor runs and every
// endpoint is open.
func (m *Monitor) setOverallHealth() {
	if m.Health == nil {
		return
	}

	m.mu.RLock()
	serving := m.running && len(m.Sources) > 0
	for name := range m.Sources {
		if !m.open[name] {
			serving = false
			break
		}
	}
	m.mu.RUnlock()

	m.Health.SetServingStatus("", serving)
}

// -----------------------------------------------------------------------------

// snapshot copies the sources; callers hold m.mu.
func (m *Monitor) snapshot() []interfaces.IEndpointSource {
	sources := make([]interfaces.IEndpointSource, 0, len(m.Sources))
	for _, source := range m.Sources {
		sources = append(sources, source)
	}
	return sources
}
