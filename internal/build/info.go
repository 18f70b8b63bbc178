// Package build exposes what the running binary was built from.
package build

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	_ "embed"
)

const Name = "visgate"

//go:embed VERSION
var rawVersion []byte

// Set through -ldflags by release builds.
var (
	Version   = ""
	Commit    = ""
	BuildTime = ""
)

var (
	GoVersion = runtime.Version()
	Platform  = runtime.GOOS + "/" + runtime.GOARCH
	StartTime = time.Now()
)

//nolint:gochecknoinits // resolve version before anything logs it.
func init() {
	if Version == "" {
		Version = strings.TrimSpace(string(rawVersion))
	}

	if Commit == "" || BuildTime == "" {
		commit, built, modified := vcsSettings()
		if Commit == "" {
			Commit = commit
			if modified && commit != "" {
				Commit += "-dirty"
			}
		}

		if BuildTime == "" {
			BuildTime = built
		}
	}
}

// vcsSettings reads the revision stamped by the go tool for builds from a checkout.
func vcsSettings() (revision, buildTime string, modified bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", "", false
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.time":
			buildTime = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}

	return revision, buildTime, modified
}

type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Uptime    string `json:"uptime"`
}

func GetBuildInfo() Info {
	return Info{
		Name:      Name,
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		Platform:  Platform,
		Uptime:    time.Since(StartTime).Round(time.Second).String(),
	}
}

// UserAgent identifies outbound calls, e.g. to a remote policy endpoint.
func UserAgent() string {
	return fmt.Sprintf("%s/%s (%s)", Name, Version, Platform)
}

func (i Info) String() string {
	lines := []string{
		fmt.Sprintf("%s %s", i.Name, i.Version),
	}

	if i.Commit != "" {
		lines = append(lines, "Commit:     "+i.Commit)
	}

	if i.BuildTime != "" {
		lines = append(lines, "Build Time: "+i.BuildTime)
	}

	lines = append(lines,
		"Go Version: "+i.GoVersion,
		"Platform:   "+i.Platform,
		"Uptime:     "+i.Uptime,
	)

	return strings.Join(lines, "\n") + "\n"
}
