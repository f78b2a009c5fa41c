package certs

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// Opts holds options for serving TLS.
type Opts struct {
	Enable         bool   `long:"enable" env:"ENABLE" description:"Set to true to serve TLS"`
	CAFile         string `long:"ca-file" env:"CA_FILE" description:"Path to a CA cert file; when set, clients must present a certificate it signed"`
	ServerCertFile string `long:"server-cert-file" env:"SERVER_CERT_FILE" default:"server.crt" description:"Path to the server certificate .pem file"`
	ServerKeyFile  string `long:"server-key-file" env:"SERVER_KEY_FILE" default:"server.key" description:"Path to the server key .pem file"`
}

// Enabled returns true if TLS serving is enabled.
func (o *Opts) Enabled() bool {
	return o != nil && o.Enable
}

// ServerTLSConfig returns a server TLS config.
func (o *Opts) ServerTLSConfig() (*tls.Config, error) {
	if o.ServerCertFile == "" {
		return nil, errors.New("server certificate filename is empty")
	}
	if o.ServerKeyFile == "" {
		return nil, errors.New("server key filename is empty")
	}
	certificate, err := tls.LoadX509KeyPair(o.ServerCertFile, o.ServerKeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading server key pair: %w", err)
	}
	config := &tls.Config{
		Certificates: []tls.Certificate{certificate},
		MinVersion:   tls.VersionTLS12,
	}
	if o.CAFile != "" {
		pool, err := certificatePool(o.CAFile)
		if err != nil {
			return nil, fmt.Errorf("creating certificate pool: %w", err)
		}
		config.ClientCAs = pool
		config.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return config, nil
}

func certificatePool(filename string) (*x509.CertPool, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(bytes) {
		return nil, errors.New("failed to append CA certs to certificate pool. Is the .pem file valid?")
	}
	return pool, nil
}
