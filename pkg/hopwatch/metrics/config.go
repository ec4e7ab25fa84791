// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package metrics

// Config holds the telemetry configuration
type Config struct {
	// Enabled is a flag to enable or disable the telemetry
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Exporter is the otlp exporter used to export the traces
	Exporter Exporter `yaml:"exporter" mapstructure:"exporter"`
	// Url is the endpoint of the collector to which the traces are exported
	Url string `yaml:"url" mapstructure:"url"`
	// Token is the token used to authenticate against the collector
	Token string `yaml:"token" mapstructure:"token"`
	// TLS holds the tls configuration
	TLS TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// TLSConfig holds the tls configuration for the exporter
type TLSConfig struct {
	// Enabled is a flag to enable or disable the tls
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// CertPath is the path to a custom certificate file
	// used to verify the collector's certificate
	CertPath string `yaml:"certPath" mapstructure:"certPath"`
}

// Validate validates the telemetry configuration
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	return c.Exporter.Validate()
}
