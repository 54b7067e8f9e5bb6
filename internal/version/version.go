package version

import (
	"runtime"
	"time"
)

// Populated via -ldflags at build time.
var (
	Version   = "dev"                           // ex: v0.1.0
	Commit    = "none"                          // ex: abcd123
	BuildDate = time.Now().Format(time.RFC3339) // ex: 2026-09-01T18:42:00Z
	GoVersion = runtime.Version()
)
