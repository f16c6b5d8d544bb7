// Package server provides the listeners the BFF and ops servers accept
// connections on.
package server

import (
	"crypto/tls"
	"fmt"
	"net"

	"github.com/dtroode/gophfeed/internal/model"
)

// TLSListener represents a TLS-enabled listener factory.
// It serves the BFF over HTTPS from a certificate and key pair on disk.
type TLSListener struct {
	certFileName       string
	privateKeyFileName string
}

// NewTLSListener creates a new TLSListener instance.
//
// Parameters:
//   - certFileName: Path to the PEM-encoded certificate
//   - privateKeyFileName: Path to the PEM-encoded private key
//
// Returns a pointer to the TLSListener. The files are not read until Listen.
func NewTLSListener(certFileName, privateKeyFileName string) *TLSListener {
	return &TLSListener{
		certFileName:       certFileName,
		privateKeyFileName: privateKeyFileName,
	}
}

// Listen loads the key pair and opens a TLS listener on addr.
// The pair is read on every call so a restarted server picks up a rotated
// certificate. TLS 1.2 is the lowest version accepted.
//
// Parameters:
//   - protocol: The network protocol (typically "tcp")
//   - addr: The address to listen on
//
// Returns the TLS listener, or an error if the key pair cannot be loaded or
// the address cannot be bound.
func (l *TLSListener) Listen(protocol, addr string) (net.Listener, error) {
	cert, err := tls.LoadX509KeyPair(l.certFileName, l.privateKeyFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	ln, err := tls.Listen(protocol, addr, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return ln, nil
}

// PlainListener represents a listener factory without TLS.
// The ops server and a BFF running behind a terminating proxy use it.
type PlainListener struct{}

// NewPlainListener creates a new PlainListener instance.
//
// Returns a pointer to the PlainListener.
func NewPlainListener() *PlainListener {
	return &PlainListener{}
}

// Listen opens an unencrypted listener on addr.
//
// Parameters:
//   - protocol: The network protocol (typically "tcp")
//   - addr: The address to listen on
//
// Returns the listener or an error if the address cannot be bound.
func (l *PlainListener) Listen(protocol, addr string) (net.Listener, error) {
	ln, err := net.Listen(protocol, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return ln, nil
}

// NewSecurityLayer picks the listener the BFF server starts with.
//
// Parameters:
//   - enableHTTPS: Whether to serve over TLS
//   - certFileName: Path to the certificate, used only with enableHTTPS
//   - privateKeyFileName: Path to the private key, used only with enableHTTPS
//
// Returns a TLSListener when enableHTTPS is set, a PlainListener otherwise.
func NewSecurityLayer(enableHTTPS bool, certFileName, privateKeyFileName string) model.SecurityLayer {
	if enableHTTPS {
		return NewTLSListener(certFileName, privateKeyFileName)
	}
	return NewPlainListener()
}
