// Package config handles configuration loading for pairsd and its companion tools.
//
// Files are YAML or TOML, selected by extension (.toml is TOML, anything else is
// YAML). Both formats support ${VAR} environment variable interpolation on the raw
// file before decoding. Durations are written as Go duration strings ("20s", "2h").
package config
