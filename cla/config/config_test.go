package config_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/distcla/cla/cla/config"
)

func TestLoadAbsentEnvReturnsEmptyConfig(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")
	cfg, err := config.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, config.Config{}) {
		t.Fatalf("cfg = %+v, want zero value", cfg)
	}
}

func TestLoadUnreadablePathReturnsEmptyConfig(t *testing.T) {
	t.Setenv(config.EnvConfigPath, filepath.Join(t.TempDir(), "missing.yaml"))
	cfg, err := config.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, config.Config{}) {
		t.Fatalf("cfg = %+v, want zero value", cfg)
	}
}

func TestLoadLocalFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cla.yaml")
	body := "participant: p1\ntransport: grpc\ngrpc:\n  address: localhost:9000\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvConfigPath, p)

	cfg, err := config.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Participant != "p1" || cfg.Transport != "grpc" || cfg.GRPC.Address != "localhost:9000" {
		t.Fatalf("cfg = %+v, want p1/grpc/localhost:9000", cfg)
	}
}

func TestLoadFileURIPrefix(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cla.yaml")
	if err := os.WriteFile(p, []byte("participant: p2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvConfigPath, "file://"+p)

	cfg, err := config.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Participant != "p2" {
		t.Fatalf("cfg.Participant = %q, want p2", cfg.Participant)
	}
}
