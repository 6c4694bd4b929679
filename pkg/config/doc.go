// Package config defines the session configuration and its loading
// pipeline: parse YAML, apply defaults, validate, then apply CERES_*
// environment overrides. A debounced file watcher re-loads the file at
// runtime so the tunable subset (confidence threshold, action vocabulary)
// can change without a restart; structural settings such as the window size
// or queue capacity only take effect on the next session.
package config
