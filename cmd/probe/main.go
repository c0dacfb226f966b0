// Command probe opens one WebSocket connection, sends a single payload,
// prints the first reply and closes. Each failing stage has its own exit code.
package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"network-monitor/src/config"
	"network-monitor/src/logger"
	"network-monitor/src/models"
	"network-monitor/src/protocols"
	"network-monitor/src/transports"
)

const (
	exitUsage = iota + 1
	exitClient
	exitConnect
	exitSend
	exitReceive
	exitClose
)

func main() {
	target := flag.String("url", "", "ws:// or wss:// URL to probe")
	caFile := flag.String("ca", "", "PEM CA bundle used to verify wss:// endpoints")
	message := flag.String("message", "", "payload to send; defaults to the protocol handshake")
	protocol := flag.String("protocol", "raw", "payload protocol (raw, stomp)")
	username := flag.String("username", "", "login for protocols that need one")
	password := flag.String("password", "", "passcode for protocols that need one")
	timeout := flag.Duration("timeout", 10*time.Second, "overall time limit")
	level := flag.String("log-level", "warning", "log level")
	flag.Parse()

	log := logger.New(os.Stderr, *level, "text", "probe")

	endpoint, err := endpointFromURL(*target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe: %v\n", err)
		os.Exit(exitUsage)
	}
	endpoint.CACertFile = *caFile
	endpoint.Protocol = *protocol
	endpoint.Username = *username
	endpoint.Password = *password
	config.ApplyEndpointDefaults(endpoint)
	if err := config.ValidateEndpoint(endpoint); err != nil {
		fmt.Fprintf(os.Stderr, "probe: %v\n", err)
		os.Exit(exitUsage)
	}

	constructor, err := protocols.GetConstructor(endpoint.Protocol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe: %v\n", err)
		os.Exit(exitUsage)
	}
	codec, err := constructor(endpoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe: %v\n", err)
		os.Exit(exitUsage)
	}

	payload := *message
	if payload == "" {
		handshake, ok := codec.Handshake()
		if !ok {
			fmt.Fprintln(os.Stderr, "probe: -message is required for this protocol")
			os.Exit(exitUsage)
		}
		payload = handshake
	}

	client, err := transports.NewWebSocketClient(endpoint, log, "probe")
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe: %v\n", err)
		os.Exit(exitClient)
	}

	os.Exit(run(client, codec.ParseMessage, payload, *timeout))
}

// -----------------------------------------------------------------------------

func run(client *transports.WebSocketClient, parse func(string) (*models.MNetworkEvent, error), payload string, timeout time.Duration) int {
	deadline := time.After(timeout)

	connected := make(chan error, 1)
	replies := make(chan string, 1)
	lost := make(chan error, 1)

	err := client.Connect(
		func(err error) { connected <- err },
		func(err error, msg string) {
			select {
			case replies <- msg:
			default:
			}
		},
		func(err error) { lost <- err },
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe: %v\n", err)
		return exitConnect
	}

	select {
	case err := <-connected:
		if err != nil {
			fmt.Fprintf(os.Stderr, "probe: connect to %s failed: %v\n", client.GetEndpoint(), err)
			return exitConnect
		}
	case <-deadline:
		fmt.Fprintf(os.Stderr, "probe: connect to %s timed out\n", client.GetEndpoint())
		closeQuietly(client)
		return exitConnect
	}

	sent := make(chan error, 1)
	client.Send(payload, func(err error) { sent <- err })

	code := 0
	select {
	case err := <-sent:
		if err != nil {
			fmt.Fprintf(os.Stderr, "probe: send failed: %v\n", err)
			code = exitSend
		}
	case <-deadline:
		fmt.Fprintln(os.Stderr, "probe: send timed out")
		code = exitSend
	}

	if code == 0 {
		select {
		case msg := <-replies:
			fmt.Println(msg)
			if event, err := parse(msg); err == nil && event.Kind != models.EventKindMessage {
				fmt.Fprintf(os.Stderr, "probe: reply classified as %s\n", event.Kind)
			}
		case err := <-lost:
			fmt.Fprintf(os.Stderr, "probe: connection lost: %v\n", err)
			return exitReceive
		case <-deadline:
			fmt.Fprintln(os.Stderr, "probe: no reply before timeout")
			code = exitReceive
		}
	}

	closed := make(chan error, 1)
	client.Close(func(err error) { closed <- err })
	select {
	case err := <-closed:
		if err != nil && code == 0 {
			fmt.Fprintf(os.Stderr, "probe: close failed: %v\n", err)
			code = exitClose
		}
	case err := <-lost:
		if code == 0 {
			fmt.Fprintf(os.Stderr, "probe: connection lost while closing: %v\n", err)
			code = exitClose
		}
	}
	<-client.Done()

	fmt.Fprintf(os.Stderr, "probe: %d received, %d sent\n", client.Received(), client.Sent())
	return code
}

// -----------------------------------------------------------------------------

func closeQuietly(client *transports.WebSocketClient) {
	done := make(chan struct{})
	client.Close(func(error) { close(done) })
	<-done
	<-client.Done()
}

// -----------------------------------------------------------------------------

// endpointFromURL turns ws://host[:port]/path into an endpoint definition.
func endpointFromURL(raw string) (*models.MEndpointConfig, error) {
	if raw == "" {
		return nil, fmt.Errorf("-url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("bad url %q: %w", raw, err)
	}

	endpoint := &models.MEndpointConfig{
		Name: "probe",
		Host: u.Hostname(),
		Port: u.Port(),
		Path: u.RequestURI(),
	}
	switch u.Scheme {
	case "wss":
		endpoint.TLS = true
	case "ws":
	default:
		return nil, fmt.Errorf("unsupported scheme %q, want ws or wss", u.Scheme)
	}
	return endpoint, nil
}
