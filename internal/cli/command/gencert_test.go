package command

import (
	"crypto/tls"
	"crypto/x509"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenCert(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "gem.crt")
	keyFile := filepath.Join(dir, "gem.key")
	args := []string{"gencert", "--host", "capsule.example", "--cert", certFile, "--key", keyFile, "--valid-for", "48h"}

	out, err := runApp(t, args...)
	if err != nil {
		t.Fatalf("gencert: %v", err)
	}
	if !strings.Contains(out, "capsule.example") {
		t.Errorf("output = %q", out)
	}

	pair, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		t.Fatalf("LoadX509KeyPair() error = %v", err)
	}
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		t.Fatal(err)
	}
	if err := leaf.VerifyHostname("capsule.example"); err != nil {
		t.Errorf("certificate does not cover host: %v", err)
	}
	if d := leaf.NotAfter.Sub(leaf.NotBefore); d < 47*3600e9 || d > 50*3600e9 {
		t.Errorf("validity = %v, want about 48h", d)
	}

	if _, err := runApp(t, args...); err == nil || !strings.Contains(err.Error(), "--force") {
		t.Errorf("second run error = %v, want refusal mentioning --force", err)
	}
	if _, err := runApp(t, append(args, "--force")...); err != nil {
		t.Errorf("--force run: %v", err)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "b", "c"); got != "b" {
		t.Errorf("firstNonEmpty() = %q", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Errorf("firstNonEmpty() = %q", got)
	}
}
