// Package config loads the podtail configuration file and holds the flat
// configuration for one run.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/podtail/config.toml (default)
//  3. If the config file doesn't exist, fall back to built-in defaults
//  4. If the file exists but fields are missing or blank, use defaults
//
// Command-line flags and PODTAIL_* environment variables are layered on top
// by the command, not by this package.
//
// # Default Values
//
//   - kind: kubectl
//   - kubectl_path: kubectl (resolved through PATH)
//   - tail: 1000 lines per source (-1 replays everything)
//   - save_dir: the working directory
//   - color: auto
//
// # TOML Format
//
//	kind = "docker"
//	context = "staging"
//	namespaces = ["shop", "blog"]
//	tail = 200
//	highlight = true
//	pattern = "timeout|refused"
//	save_dir = "~/podtail-logs"
//	color = "always"
//	seed = 7
//	debug_log = "~/.local/state/podtail/debug.log"
//
// Every field is optional. Tilde expansion is applied to save_dir, debug_log
// and kubectl_path.
//
// # Validation
//
// Validate rejects unknown kinds and color modes, a tail below -1, and
// conflicting namespace selections. Load itself only fails on unreadable or
// malformed files; a missing file is not an error.
package config
