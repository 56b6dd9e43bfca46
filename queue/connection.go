package queue

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// newTransport builds the producer transport with optional TLS and SASL.
func newTransport(cfg *Config) (*kafkago.Transport, error) {
	t := &kafkago.Transport{DialTimeout: parseDuration(cfg.DialTimeout)}
	var err error
	if cfg.EnableTLS {
		if t.TLS, err = tlsConfig(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.EnableSASL {
		if t.SASL, err = saslMechanism(cfg); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// newDialer builds the consumer dialer with optional TLS and SASL.
func newDialer(cfg *Config) (*kafkago.Dialer, error) {
	d := &kafkago.Dialer{Timeout: parseDuration(cfg.DialTimeout), DualStack: true}
	var err error
	if cfg.EnableTLS {
		if d.TLS, err = tlsConfig(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.EnableSASL {
		if d.SASLMechanism, err = saslMechanism(cfg); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func tlsConfig(cfg *Config) (*tls.Config, error) {
	tc := &tls.Config{
		InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // opt-in for development clusters
		MinVersion:         tls.VersionTLS12,
	}
	if cfg.TLSCAFile != "" {
		pem, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("queue: read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("queue: parse CA certificate")
		}
		tc.RootCAs = pool
	}
	return tc, nil
}

func saslMechanism(cfg *Config) (sasl.Mechanism, error) {
	switch cfg.SASLMechanism {
	case "PLAIN":
		return plain.Mechanism{Username: cfg.Username, Password: cfg.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
	default:
		return nil, fmt.Errorf("queue: unsupported SASL mechanism: %s", cfg.SASLMechanism)
	}
}
