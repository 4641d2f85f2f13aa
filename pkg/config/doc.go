// Package config provides configuration management using Viper.
//
// Loads and validates configuration from YAML files with support for
// multiple config locations and default values. Covers backing-store
// connection settings, key-space namespacing defaults, and the ambient
// REST API / logging / rate-limit surface.
package config
