package http

import (
	"crypto/tls"
	"fmt"
	"net"

	"github.com/gofiber/fiber/v3"
)

// createListener builds the net.Listener ahead of Serve so binding
// errors abort startup.
func createListener(addr string, config fiber.ListenConfig) (net.Listener, error) {
	network := config.ListenerNetwork
	if network == "" {
		network = "tcp4"
	}

	var ln net.Listener
	var err error

	if config.CertFile != "" && config.CertKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(config.CertFile, config.CertKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
		}

		tlsConfig := &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		if config.TLSMinVersion > 0 {
			tlsConfig.MinVersion = config.TLSMinVersion
		}
		if config.CertClientFile != "" {
			tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
		}

		ln, err = tls.Listen(network, addr, tlsConfig)
		if err != nil {
			return nil, err
		}
		return ln, nil
	}

	ln, err = net.Listen(network, addr)
	if err != nil {
		return nil, err
	}
	return ln, nil
}
