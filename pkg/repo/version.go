package repo

import (
	"fmt"
	"runtime"
)

// set by ldflags
var (
	BuildDate    = "unknown"
	BuildVersion = "dev"
	BuildCommit  = "unknown"
	BuildBranch  = "unknown"

	GoVersion = runtime.Version()
	Platform  = fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
)
