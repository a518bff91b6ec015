package awssdk

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gocloudkit/awssdk-core/internal/awserr"
)

// EnvironmentOverrides is a named-environment table of region/endpoint
// overrides, loaded from a YAML file: one entry per deployment
// environment (e.g. "staging", "prod"), each overriding a subset of
// Config's region and endpoint fields. Grounded on the teacher's
// workflow definitions being YAML (gopkg.in/yaml.v3, a direct teacher
// dependency) and on its per-environment config layering
// (internal/config), adapted here from workflow steps to service
// endpoint selection.
//
// Example file:
//
//	staging:
//	  region: us-west-2
//	  endpoint: https://dynamodb.us-west-2.staging.example.internal
//	prod:
//	  region: us-east-1
type EnvironmentOverrides map[string]struct {
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// LoadEnvironmentOverrides reads and parses an environment-overrides file.
func LoadEnvironmentOverrides(path string) (EnvironmentOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &awserr.ConfigError{Key: path, Reason: "read environment overrides file", Cause: err}
	}
	var overrides EnvironmentOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, &awserr.ConfigError{Key: path, Reason: "parse environment overrides YAML", Cause: err}
	}
	return overrides, nil
}

// Apply derives a Config with env's region/endpoint overrides patched in,
// via Config.With (spec §6 "ServiceConfig.with(patch)"). A missing env
// name is a ConfigError, not a silent no-op, since a typo here would
// otherwise silently route production traffic at the default endpoint.
func (o EnvironmentOverrides) Apply(cfg Config, env string) (Config, error) {
	entry, ok := o[env]
	if !ok {
		return Config{}, &awserr.ConfigError{Key: env, Reason: fmt.Sprintf("no environment override named %q", env)}
	}
	return cfg.With(func(c *Config) {
		if entry.Region != "" {
			c.Region = entry.Region
		}
		if entry.Endpoint != "" {
			c.EndpointOverride = entry.Endpoint
		}
	}), nil
}
