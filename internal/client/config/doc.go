// Package config loads runtime configuration for the SnapKeeper client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected via -c or -config. Files ending in
//     .yaml or .yml are read as YAML, anything else as JSON. Keys missing
//     from the file keep their default.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string   library database path
//	-f string   remote folder name
//	-i int      sync interval (seconds)
//	-w string   directory to watch for new photos
//	-l string   address of the local status server ("" disables it)
//
// # File schema
//
// Durations use timex.Duration, so values can be either strings like "60s"
// or integer nanoseconds:
//
//	{
//	  "db_path": "snapkeeper.db",
//	  "remote_folder": "Snapshot",
//	  "sync_interval": "60s",
//	  "content_backend": "s3",
//	  "s3": {"bucket": "photos", "endpoint": "http://127.0.0.1:9000"}
//	}
package config
