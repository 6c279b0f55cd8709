// File: cuculi/config/doc.go

// Package config loads layered configuration with environment overrides,
// caches the merged result in memory and reloads it while the process runs.
//
// Layout:
//
//	config/
//	    settings.yaml               base source
//	    environments/production.yaml override for "production"
//	    .env                        optional, only used for ${VAR} substitution
//
// YAML, TOML and JSON sources are supported. Mappings are merged deeply; any
// other value in a higher layer replaces the lower one. A string that is
// exactly "${NAME}" is replaced by the environment variable NAME (or the .env
// entry) when it is set.
//
// Quick Start:
//
//	loader, err := config.New(config.WithDir("config"), config.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := loader.Load(ctx, "production"); err != nil {
//	    log.Fatal(err)
//	}
//
//	host, _ := loader.String("db.host")
//	port, _ := loader.Int64("db.port")
//
//	if err := loader.Watch(ctx, config.DefaultWatchOptions()); err != nil {
//	    log.Fatal(err)
//	}
//	defer loader.Close()
//
// Precedence (highest to lowest):
//  1. Overlays registered with WithOverlay, last added first
//  2. environments/<env> override
//  3. Base source
//
// A missing environment override is not an error: the base is used alone and
// an *UnmatchedEnvironmentWarning is logged and attached to the snapshot.
//
// Thread Safety:
// The active configuration is an immutable *Snapshot behind an atomic pointer.
// Readers never block on I/O. Refresh builds a complete snapshot before
// swapping it in, so readers observe either the old or the new configuration,
// never a mix, and a failed refresh leaves the previous snapshot in place.
package config
