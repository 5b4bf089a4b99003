// Package config loads, normalizes, and validates photomatch configuration.
package config
