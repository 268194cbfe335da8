// Package config loads Gatehouse configuration from environment variables.
//
// All variables are prefixed GATEHOUSE_. Missing variables fall back to
// defaults suitable for local development, except the database URL which is
// required.
package config
