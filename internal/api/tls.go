package api

import (
	"crypto/tls"
	"fmt"
	"log"
	"os"
)

// TLSConfig names the certificate pair the server listens with.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

// tlsConfig is nil while the server speaks plain HTTP.
var tlsConfig *TLSConfig

// InitTLS picks up ADVENTURE_TLS_CERT and ADVENTURE_TLS_KEY. A half-set
// pair is reported and leaves the server on plain HTTP.
func InitTLS() {
	cert := os.Getenv("ADVENTURE_TLS_CERT")
	key := os.Getenv("ADVENTURE_TLS_KEY")

	switch {
	case cert != "" && key != "":
		tlsConfig = &TLSConfig{CertFile: cert, KeyFile: key}
	case cert != "" || key != "":
		log.Printf("api: ADVENTURE_TLS_CERT and ADVENTURE_TLS_KEY must both be set; serving plain HTTP")
		tlsConfig = nil
	default:
		tlsConfig = nil
	}
}

// IsTLSEnabled reports whether a certificate pair is configured.
func IsTLSEnabled() bool {
	return tlsConfig != nil && tlsConfig.CertFile != "" && tlsConfig.KeyFile != ""
}

// LoadTLSConfig reads the configured pair. Without a pair it returns nil
// and no error; a pair that cannot be read is an error so Serve does not
// quietly fall back to plain HTTP.
func LoadTLSConfig() (*tls.Config, error) {
	if !IsTLSEnabled() {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(tlsConfig.CertFile, tlsConfig.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load certificate %s: %w", tlsConfig.CertFile, err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
