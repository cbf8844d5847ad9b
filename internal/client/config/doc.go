// Package config loads the CLI settings. Sources are applied in order, each
// overriding the previous one: built-in defaults, an optional JSON file
// (-c/-config), GAMEVAULT_* environment variables, then command-line flags.
package config
