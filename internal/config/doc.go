// Package config loads the actionbus configuration.
//
// Configuration is layered: built-in defaults, then the TOML or YAML file, then
// ACTIONBUS_* environment variables. Command-line flags are applied last by
// the caller.
//
// Example file:
//
//	log_level = "debug"
//
//	[ui]
//	mode = "terminal"   # auto, terminal or headless
//	log_lines = 500
//
//	[scripts]
//	paths = ["~/.config/actionbus/init.lua"]
//
//	[watch]
//	paths = ["./src"]
//	debounce_ms = 50
//	ignore = ["*.swp", "*~"]
//
// A file ending in .yaml or .yml is read as YAML with the same keys. A
// missing file is not an error. Unknown keys are.
package config
