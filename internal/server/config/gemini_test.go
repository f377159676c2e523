package config

import (
	"testing"
	"time"

	"github.com/kr/pretty"

	"github.com/yndnr/capsule/internal/server/geminiserver"
)

func TestToGeminiConfig(t *testing.T) {
	cfg := Default()
	cfg.Server.Listen = "127.0.0.1:1965"
	cfg.Server.MaxConnections = 64
	cfg.RateLimit.RequestsPerSecond = 2.5

	got := ToGeminiConfig(cfg)
	want := &geminiserver.Config{
		Hostname:         "localhost",
		Port:             1965,
		Addr:             "127.0.0.1:1965",
		ReadTimeout:      5 * time.Second,
		HandshakeTimeout: 5 * time.Second,
		WriteTimeout:     30 * time.Second,
		MaskRemoteAddr:   true,
		MaxConnections:   64,
		RateLimit:        2.5,
		RateBurst:        10,
	}

	if diff := pretty.Diff(want, got); len(diff) > 0 {
		t.Errorf("ToGeminiConfig() mismatch:\n%s", pretty.Sprint(diff))
	}
}

func TestPolicy(t *testing.T) {
	cfg := Default()
	cfg.Server.Hostname = "capsule.example"
	cfg.Server.Port = 1966

	hp, ok := Policy(cfg).(geminiserver.HostPolicy)
	if !ok {
		t.Fatalf("gemini mode policy = %T, want HostPolicy", Policy(cfg))
	}
	if hp.Hostname != "capsule.example" || hp.Port != 1966 {
		t.Errorf("HostPolicy = %# v", pretty.Formatter(hp))
	}

	cfg.Server.Mode = ModeProxy
	if _, ok := Policy(cfg).(geminiserver.AcceptAll); !ok {
		t.Errorf("proxy mode policy = %T, want AcceptAll", Policy(cfg))
	}
}

func TestRedirectRules(t *testing.T) {
	cfg := Default()
	cfg.Redirects = []RedirectConfig{
		{Prefix: "/old", Target: "/new"},
		{Prefix: "/gone", Target: "gemini://elsewhere/", Permanent: true},
	}

	got := RedirectRules(cfg)
	want := []geminiserver.Redirect{
		{Prefix: "/old", Target: "/new"},
		{Prefix: "/gone", Target: "gemini://elsewhere/", Permanent: true},
	}
	if diff := pretty.Diff(want, got); len(diff) > 0 {
		t.Errorf("RedirectRules() mismatch:\n%s", pretty.Sprint(diff))
	}
}

func TestLoggerConfig(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "debug"
	cfg.Log.Format = "text"

	lc := LoggerConfig(cfg)
	if lc.Level != "debug" || lc.Format != "text" || lc.Output == nil {
		t.Errorf("LoggerConfig() = %# v", pretty.Formatter(lc))
	}
}
