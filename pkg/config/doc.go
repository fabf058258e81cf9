// Package config loads Terraso server settings.
//
// Settings are resolved in order: built-in defaults, then the YAML file at
// $TERRASO_CONFIG_PATH/terraso.yml (default /etc/terraso/terraso.yml), then
// TERRASO_* environment variables. Each attribute remembers which source set
// it so `terrasoctl config show` can report it.
//
// Watch reloads the global config when the YAML file changes.
package config
