package tlscert

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
)

// ErrNoCertificate is returned when no usable certificate is available.
var ErrNoCertificate = errors.New("tlscert: no certificate")

// Source provides the certificate presented during the handshake.
// It matches the signature of tls.Config.GetCertificate.
type Source interface {
	GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error)
}

type staticSource struct {
	cert *tls.Certificate
}

func (s staticSource) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return s.cert, nil
}

// Static returns a Source that always presents cert.
func Static(cert tls.Certificate) Source {
	return staticSource{cert: &cert}
}

// LoadKeyPair loads a PEM certificate and private key.
func LoadKeyPair(certFile, keyFile string) (tls.Certificate, error) {
	if certFile == "" || keyFile == "" {
		return tls.Certificate{}, fmt.Errorf("%w: certificate and key paths are required", ErrNoCertificate)
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: load key pair: %v", ErrNoCertificate, err)
	}
	return cert, nil
}

// Exists reports whether both files exist.
func Exists(certFile, keyFile string) bool {
	_, certErr := os.Stat(certFile)
	_, keyErr := os.Stat(keyFile)
	return certErr == nil && keyErr == nil
}

// ServerConfig builds the server side tls.Config for src.
// Only TLS 1.2 and 1.3 are negotiated.
func ServerConfig(src Source) *tls.Config {
	return &tls.Config{
		GetCertificate: src.GetCertificate,
		MinVersion:     tls.VersionTLS12,
		MaxVersion:     tls.VersionTLS13,
	}
}
