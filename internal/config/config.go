/*
DESCRIPTION
  config.go holds the run configuration assembled from CLI flags and shared
  across av1grain's subcommands.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for an av1grain run.
package config

import "github.com/ausocean/av1grain/internal/logging"

// Config provides parameters relevant to a single av1grain invocation. A new
// Config is built by the cmd layer from flags and passed down to each
// subcommand's collaborators.
type Config struct {
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string

	// LogFile, if non-empty, additionally writes logs to this rotating file.
	LogFile string

	// Force, when true, overwrites the output path without prompting.
	Force bool

	// GrainTablePath is the -g argument to apply.
	GrainTablePath string

	// ISO is the generate subcommand's --iso value.
	ISO int

	// Chroma enables chroma grain synthesis for generate.
	Chroma bool

	// FilterChain is the diff subcommand's -f filter chain string.
	FilterChain string

	// Logger is the logging destination for every collaborator. Defaults to
	// logging.Discard if never set.
	Logger logging.Logger
}

// LogInvalidField logs that a flag or field value was invalid and that def
// is being used in its place.
func (c *Config) LogInvalidField(name string, def interface{}) {
	if c.Logger == nil {
		c.Logger = logging.Discard
	}
	c.Logger.Warn(name+" bad or unset, defaulting", name, def)
}
