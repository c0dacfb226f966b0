package models

import "time"

// -----------------------------------------------------------------------------

// MConfig is the root of the YAML configuration file.
type MConfig struct {
	Name      string             `yaml:"name"`
	GRPC_Host string             `yaml:"grpc_host"`
	GRPC_Port int                `yaml:"grpc_port"`
	Log       MLogConfig         `yaml:"log"`
	Layout    *MLayoutConfig     `yaml:"layout,omitempty"`
	NATS      MNATSConfig        `yaml:"nats"`
	Endpoints []*MEndpointConfig `yaml:"endpoints"`
}

// -----------------------------------------------------------------------------

// MLogConfig selects the logger level ("debug", "info", "warning", "error") and
// output format ("text" or "json").
type MLogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// -----------------------------------------------------------------------------

// MLayoutConfig describes the network layout file fetched once at startup.
type MLayoutConfig struct {
	URL         string `yaml:"url"`
	Destination string `yaml:"destination"`
	CACertFile  string `yaml:"ca_cert_file"`
}

// -----------------------------------------------------------------------------

// MEndpointConfig holds everything needed to open one WebSocket connection.
type MEndpointConfig struct {
	Name       string `yaml:"name"`
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	Path       string `yaml:"path"`
	TLS        bool   `yaml:"tls"`
	CACertFile string `yaml:"ca_cert_file"`

	// Protocol names the payload codec registered in src/protocols ("raw", "stomp").
	Protocol string `yaml:"protocol"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	ConnectionConfig MConnectionConfig `yaml:"connection"`
}

// -----------------------------------------------------------------------------

// MConnectionConfig tunes the timeouts of a single connection.
type MConnectionConfig struct {
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	CloseTimeout     time.Duration `yaml:"close_timeout"`
	ReadBufferSize   int           `yaml:"read_buffer_size"`
	WriteBufferSize  int           `yaml:"write_buffer_size"`
}

// -----------------------------------------------------------------------------

// MNATSConfig configures the event publisher.
type MNATSConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Servers        []string      `yaml:"servers"`
	ClientID       string        `yaml:"client_id"`
	SubjectPrefix  string        `yaml:"subject_prefix"`
	Serializer     string        `yaml:"serializer"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReconnectWait  time.Duration `yaml:"reconnect_wait"`
	MaxReconnects  int           `yaml:"max_reconnects"`
	FlushTimeout   time.Duration `yaml:"flush_timeout"`

	JetStream *MJetStreamConfig `yaml:"jetstream,omitempty"`
}

// -----------------------------------------------------------------------------

// MJetStreamConfig enables persistent publishing into a stream.
type MJetStreamConfig struct {
	Enabled    bool          `yaml:"enabled"`
	StreamName string        `yaml:"stream_name"`
	Subjects   []string      `yaml:"subjects"`
	Replicas   int           `yaml:"replicas"`
	MaxAge     time.Duration `yaml:"max_age"`
	MaxMsgs    int64         `yaml:"max_msgs"`
	MaxBytes   int64         `yaml:"max_bytes"`
	MaxMsgSize int           `yaml:"max_msg_size"`
}
