package factories

import (
	"fmt"

	"network-monitor/src/config"
	"network-monitor/src/interfaces"
	"network-monitor/src/logger"
	"network-monitor/src/models"
	"network-monitor/src/protocols"
	"network-monitor/src/transports"
)

// -----------------------------------------------------------------------------

// EndpointFactory builds the protocol codec and connection client of each
// monitored endpoint.
type EndpointFactory struct {
	Name   string
	Config *config.Config
	Logger *logger.Logger

	// ClientOptions are passed to every transport client (tests swap the resolver).
	ClientOptions []transports.Option
}

// -----------------------------------------------------------------------------

// NewEndpointFactory creates a factory; opts are applied to every client it builds.
func NewEndpointFactory(config *config.Config, logger *logger.Logger, opts ...transports.Option) *EndpointFactory {
	return &EndpointFactory{
		Name:          "EndpointFactory",
		Config:        config,
		Logger:        logger,
		ClientOptions: opts,
	}
}

// -----------------------------------------------------------------------------

// CreateProtocol creates the codec named by the endpoint, using the registry
// in src/protocols.
func (f *EndpointFactory) CreateProtocol(endpoint *models.MEndpointConfig) (interfaces.IProtocol, error) {
	constructor, err := protocols.GetConstructor(endpoint.Protocol)
	if err != nil {
		return nil, err
	}

	protocol, err := constructor(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create protocol %s for %s: %w", endpoint.Protocol, endpoint.Name, err)
	}

	f.Logger.Debug("%s : created %s protocol for %s", f.Name, protocol.GetName(), endpoint.Name)
	return protocol, nil
}

// -----------------------------------------------------------------------------

// CreateConnectionClient creates the transport client of an endpoint.
func (f *EndpointFactory) CreateConnectionClient(endpoint *models.MEndpointConfig) (interfaces.IConnectionClient, error) {
	client, err := transports.NewWebSocketClient(endpoint, f.Logger, endpoint.Name, f.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection client for %s: %w", endpoint.Name, err)
	}
	return client, nil
}

// -----------------------------------------------------------------------------

// CreateProtocolWithConnection validates the endpoint, applies defaults and
// creates both halves.
func (f *EndpointFactory) CreateProtocolWithConnection(endpoint *models.MEndpointConfig) (interfaces.IProtocol, interfaces.IConnectionClient, error) {
	if endpoint == nil {
		return nil, nil, fmt.Errorf("endpoint config is nil")
	}
	config.ApplyEndpointDefaults(endpoint)
	if err := config.ValidateEndpoint(endpoint); err != nil {
		return nil, nil, err
	}

	protocol, err := f.CreateProtocol(endpoint)
	if err != nil {
		return nil, nil, err
	}

	client, err := f.CreateConnectionClient(endpoint)
	if err != nil {
		return nil, nil, err
	}

	f.Logger.Info("%s : created %s client for %s (%s)", f.Name, client.GetType(), endpoint.Name, client.GetEndpoint())
	return protocol, client, nil
}
