package api

import (
	"context"
	"strings"
	"testing"
)

func TestInitTLS_NoEnvVars(t *testing.T) {
	t.Setenv("ADVENTURE_TLS_CERT", "")
	t.Setenv("ADVENTURE_TLS_KEY", "")

	InitTLS()

	if IsTLSEnabled() {
		t.Error("TLS should not be enabled when env vars are not set")
	}
}

func TestInitTLS_OnlyCert(t *testing.T) {
	t.Setenv("ADVENTURE_TLS_CERT", "/path/to/cert.pem")
	t.Setenv("ADVENTURE_TLS_KEY", "")

	InitTLS()

	if IsTLSEnabled() {
		t.Error("TLS should not be enabled when only cert is set")
	}
}

func TestInitTLS_BothSet(t *testing.T) {
	t.Setenv("ADVENTURE_TLS_CERT", "/path/to/cert.pem")
	t.Setenv("ADVENTURE_TLS_KEY", "/path/to/key.pem")
	defer func() { tlsConfig = nil }()

	InitTLS()

	if !IsTLSEnabled() {
		t.Fatal("TLS should be enabled when both cert and key are set")
	}
	if tlsConfig.CertFile != "/path/to/cert.pem" {
		t.Errorf("CertFile = %q, want %q", tlsConfig.CertFile, "/path/to/cert.pem")
	}
	if tlsConfig.KeyFile != "/path/to/key.pem" {
		t.Errorf("KeyFile = %q, want %q", tlsConfig.KeyFile, "/path/to/key.pem")
	}
}

func TestInitTLS_ClearsPreviousConfig(t *testing.T) {
	tlsConfig = &TLSConfig{CertFile: "a", KeyFile: "b"}
	t.Setenv("ADVENTURE_TLS_CERT", "")
	t.Setenv("ADVENTURE_TLS_KEY", "")

	InitTLS()

	if IsTLSEnabled() {
		t.Error("re-init without env vars should disable TLS")
	}
}

func TestLoadTLSConfig_NotEnabled(t *testing.T) {
	tlsConfig = nil

	cfg, err := LoadTLSConfig()
	if cfg != nil || err != nil {
		t.Errorf("expected no config and no error, got %v, %v", cfg, err)
	}
}

func TestLoadTLSConfig_UnreadablePairIsError(t *testing.T) {
	tlsConfig = &TLSConfig{
		CertFile: "/nonexistent/cert.pem",
		KeyFile:  "/nonexistent/key.pem",
	}
	defer func() { tlsConfig = nil }()

	cfg, err := LoadTLSConfig()
	if cfg != nil {
		t.Error("expected no config for an unreadable pair")
	}
	if err == nil || !strings.Contains(err.Error(), "/nonexistent/cert.pem") {
		t.Errorf("expected error naming the certificate, got %v", err)
	}
}

func TestServeFailsOnUnreadableCertificate(t *testing.T) {
	tlsConfig = &TLSConfig{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"}
	defer func() { tlsConfig = nil }()

	s, _ := newTestServer(t)
	if err := s.Serve(context.Background(), "127.0.0.1:0"); err == nil {
		t.Error("expected Serve to refuse an unreadable certificate")
	}
}
