// Package config loads pinlock settings.
//
// Sources are applied in order, later ones winning:
//
//  1. Defaults()
//  2. a YAML file, when a path is given
//  3. PINLOCK_* environment variables
//  4. command-line flags, applied by the caller before Validate
package config
