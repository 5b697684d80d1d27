package main

import (
	"fmt"
	"runtime/debug"
)

// Set at build time:
//
//	go build -ldflags="-X main.version=v1.2.3 -X main.commit=abc123" ./cmd/accountctl
//
//nolint:gochecknoglobals
var (
	version = ""
	commit  = ""
)

func versionString() string {
	v, c := version, commit

	if info, ok := debug.ReadBuildInfo(); ok {
		if v == "" && info.Main.Version != "" {
			v = info.Main.Version
		}

		for _, setting := range info.Settings {
			if c == "" && setting.Key == "vcs.revision" {
				c = setting.Value
			}
		}
	}

	if v == "" {
		v = "dev"
	}

	if c == "" {
		c = "unknown"
	}

	return fmt.Sprintf("%s (commit: %s)", v, c)
}
