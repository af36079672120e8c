// Package config provides configuration management for foreman.
//
// Configuration is loaded from a single directory containing config.yaml.
// The default directory is ~/.config/foreman, overridable with the
// --config-path flag. A missing config.yaml is not an error: the loader
// starts from GetDefaultConfig and overlays whatever the file provides,
// so a partial file only overrides the keys it names.
//
// The validation helpers in this package are shared with the plan loader,
// which applies the same field-level error collection to plan files.
package config
