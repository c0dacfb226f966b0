package main

import "testing"

func TestEndpointFromURL(t *testing.T) {
	tests := []struct {
		raw     string
		host    string
		port    string
		path    string
		tls     bool
		wantErr bool
	}{
		{"wss://ltnm.learncppthroughprojects.com/network-events", "ltnm.learncppthroughprojects.com", "", "/network-events", true, false},
		{"ws://127.0.0.1:8080/", "127.0.0.1", "8080", "/", false, false},
		{"ws://[::1]:9000/feed?x=1", "::1", "9000", "/feed?x=1", false, false},
		{"http://example.org/", "", "", "", false, true},
		{"", "", "", "", false, true},
	}
	for _, tt := range tests {
		ep, err := endpointFromURL(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("endpointFromURL(%q) expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("endpointFromURL(%q): %v", tt.raw, err)
		}
		if ep.Host != tt.host || ep.Port != tt.port || ep.Path != tt.path || ep.TLS != tt.tls {
			t.Errorf("endpointFromURL(%q) = %+v", tt.raw, ep)
		}
	}
}
