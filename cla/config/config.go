// Package config loads cla.Config from the path or URI named by the
// SILKIT_CONFIG_PATH environment variable (spec.md §6 Environment),
// following the teacher's own host-agnostic loader shape
// (connect/s3x, connect/wiring.go): local files and centrally managed
// s3://bucket/key configuration are both first-class, and an absent or
// unreadable source is never an error — just an empty Config, per
// spec.md §4.H.
package config

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath is the environment variable Load reads.
const EnvConfigPath = "SILKIT_CONFIG_PATH"

// Config gathers everything a host may override when constructing a
// cla.Service (spec.md §6).
type Config struct {
	Participant string       `yaml:"participant"`
	Transport   string       `yaml:"transport"`
	GRPC        GRPCConfig   `yaml:"grpc"`
	Kafka       KafkaConfig  `yaml:"kafka"`
}

// GRPCConfig configures transport/grpcrpc.
type GRPCConfig struct {
	Address string `yaml:"address"`
}

// KafkaConfig configures transport/kafkapubsub.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

// Load reads SILKIT_CONFIG_PATH, parses it as YAML, and returns the
// result. A blank env var, a read failure, or a parse failure all yield
// an empty Config and a nil error — a host with no configuration source
// is a perfectly normal deployment (e.g. every field left to its
// programmatic default), not a fatal one.
func Load(ctx context.Context) (Config, error) {
	p := os.Getenv(EnvConfigPath)
	if p == "" {
		return Config{}, nil
	}

	data, err := read(ctx, p)
	if err != nil {
		return Config{}, nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, nil
	}
	return cfg, nil
}

func read(ctx context.Context, location string) ([]byte, error) {
	switch {
	case strings.HasPrefix(location, "s3://"):
		return readS3(ctx, location)
	case strings.HasPrefix(location, "file://"):
		return os.ReadFile(strings.TrimPrefix(location, "file://"))
	default:
		return os.ReadFile(location)
	}
}

func readS3(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(uri, "s3://"), "/")
	if !ok {
		return nil, &invalidURIError{uri: uri}
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg)

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

type invalidURIError struct{ uri string }

func (e *invalidURIError) Error() string {
	return "config: invalid s3 uri, want s3://bucket/key: " + e.uri
}
