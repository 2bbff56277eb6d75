// Package version reports what this schemakit binary is and what it can
// talk to. Version, BuildDate and GitCommit are set with -ldflags at release
// time; development builds fall back to the VCS stamp of the Go toolchain.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/satishbabariya/schemakit/internal/adapters/database"
	"github.com/satishbabariya/schemakit/internal/adapters/document"
	"github.com/satishbabariya/schemakit/internal/core/dialect"
)

var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Info describes the build and its capabilities.
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
	Modified  bool

	// DocumentFormat is the newest schema document format written.
	DocumentFormat string
	Dialects       []string
	Drivers        []string

	GoVersion string
	Platform  string
}

// Get returns version information
func Get() Info {
	info := Info{
		Version:        Version,
		BuildDate:      BuildDate,
		GitCommit:      GitCommit,
		DocumentFormat: document.FormatVersion,
		Dialects:       dialect.Names(),
		Drivers:        database.Drivers(),
		GoVersion:      runtime.Version(),
		Platform:       fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.stamp(bi.Settings)
	}
	return info
}

// stamp fills what ldflags left unset from the toolchain's VCS settings.
func (i *Info) stamp(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if i.GitCommit == "unknown" {
				i.GitCommit = s.Value
			}
		case "vcs.time":
			if i.BuildDate == "unknown" {
				i.BuildDate = s.Value
			}
		case "vcs.modified":
			i.Modified = s.Value == "true"
		}
	}
}

func (i Info) commit() string {
	c := i.GitCommit
	if len(c) > 12 {
		c = c[:12]
	}
	if i.Modified {
		c += "-dirty"
	}
	return c
}

func (i Info) String() string {
	return fmt.Sprintf("schemakit version %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// FullString adds build details and the supported backends.
func (i Info) FullString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "schemakit version %s\n", i.Version)
	fmt.Fprintf(&b, "Build Date: %s\n", i.BuildDate)
	fmt.Fprintf(&b, "Git Commit: %s\n", i.commit())
	fmt.Fprintf(&b, "Document Format: %s\n", i.DocumentFormat)
	fmt.Fprintf(&b, "Dialects: %s\n", strings.Join(i.Dialects, ", "))
	fmt.Fprintf(&b, "Drivers: %s\n", strings.Join(i.Drivers, ", "))
	fmt.Fprintf(&b, "Platform: %s\n", i.Platform)
	fmt.Fprintf(&b, "Go Version: %s", i.GoVersion)
	return b.String()
}
