// Package config provides the configuration for the outliner.
//
// Configuration is merged from three sources, later ones overriding
// earlier ones:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← OUTLINER_SECTION_KEY, highest priority
//	├─────────────────────────────┤
//	│  2. Config File             │  ← outliner.toml (with include support)
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// Command line flags are applied on top by the caller.
//
// # Configuration Files
//
//	# outliner.toml
//	include = "shared.toml"
//
//	[outline]
//	debounce_ms = 2500
//	min_lines = 2
//	collapse_imports = true
//
//	[log]
//	level = "info"
//	format = "console"
//
//	[languages.scripts]
//	md = "~/.config/outliner/markdown.lua"
//
//	[metrics]
//	addr = ":9090"
//
//	[view]
//	tab_width = 4
package config
