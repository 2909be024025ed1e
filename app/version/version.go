// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

// Package version provides the release version of ipfslog and build information.
package version

import (
	"context"
	"fmt"
	"regexp"
	"runtime/debug"
	"strconv"

	"github.com/obolnetwork/ipfslog/app/errors"
	"github.com/obolnetwork/ipfslog/app/log"
	"github.com/obolnetwork/ipfslog/app/z"
)

// version is the release version of the codebase.
// Usually overridden by tag names when building binaries.
var version = "v0.3-dev"

// Version is the parsed release version.
var Version, _ = Parse(version) // Error is caught in tests.

var semverRegex = regexp.MustCompile(`^v(\d+)\.(\d+)(?:\.(\d+))?(?:-(.+))?$`)

type semVerType int

const (
	typeMinor semVerType = iota
	typePatch
	typePreRelease
)

// SemVer is a semantic version: vMAJOR.MINOR[.PATCH][-PRERELEASE].
type SemVer struct {
	semVerType semVerType
	major      int
	minor      int
	patch      int
	preRelease string
}

// String returns the version as a string.
func (v SemVer) String() string {
	switch v.semVerType {
	case typePatch:
		return fmt.Sprintf("v%d.%d.%d", v.major, v.minor, v.patch)
	case typePreRelease:
		return fmt.Sprintf("v%d.%d-%s", v.major, v.minor, v.preRelease)
	default:
		return fmt.Sprintf("v%d.%d", v.major, v.minor)
	}
}

// Parse returns the semantic version of the string.
func Parse(version string) (SemVer, error) {
	match := semverRegex.FindStringSubmatch(version)
	if match == nil {
		return SemVer{}, errors.New("invalid version string", z.Str("version", version))
	}

	major, err := strconv.Atoi(match[1])
	if err != nil {
		return SemVer{}, errors.Wrap(err, "invalid major version")
	}
	minor, err := strconv.Atoi(match[2])
	if err != nil {
		return SemVer{}, errors.Wrap(err, "invalid minor version")
	}

	resp := SemVer{semVerType: typeMinor, major: major, minor: minor}

	switch {
	case match[3] != "" && match[4] != "":
		return SemVer{}, errors.New("patch and pre-release not supported", z.Str("version", version))
	case match[3] != "":
		resp.patch, err = strconv.Atoi(match[3])
		if err != nil {
			return SemVer{}, errors.Wrap(err, "invalid patch version")
		}
		resp.semVerType = typePatch
	case match[4] != "":
		resp.preRelease = match[4]
		resp.semVerType = typePreRelease
	}

	return resp, nil
}

// GitCommit returns the git commit hash and timestamp from build info.
func GitCommit() (hash string, timestamp string) {
	hash, timestamp = "unknown", "unknown"

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return hash, timestamp
	}

	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			hash = s.Value[:7]
		} else if s.Key == "vcs.time" {
			timestamp = s.Value
		}
	}

	return hash, timestamp
}

// LogInfo logs ipfslog version information along-with the provided message.
func LogInfo(ctx context.Context, msg string) {
	gitHash, gitTimestamp := GitCommit()
	log.Info(ctx, msg,
		z.Str("version", Version.String()),
		z.Str("git_commit_hash", gitHash),
		z.Str("git_commit_time", gitTimestamp),
	)
}
