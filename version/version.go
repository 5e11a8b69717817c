// Package version reports build information for the skmf binary.
package version

import (
	"runtime/debug"
	"sort"
)

// ModulePath is the Go module path of this repository.
const ModulePath = "skmf.evalgo.org"

// Set at link time with -ldflags "-X skmf.evalgo.org/version.Commit=..."
var (
	Commit    = ""
	BuildDate = ""
)

// DependencyInfo holds information about a single dependency
type DependencyInfo struct {
	Path    string `json:"path"`
	Version string `json:"version"`
	Replace string `json:"replace,omitempty"`
}

// BuildInfo contains build and dependency information
type BuildInfo struct {
	GoVersion    string           `json:"goVersion"`
	MainModule   string           `json:"mainModule"`
	MainVersion  string           `json:"mainVersion"`
	Commit       string           `json:"commit,omitempty"`
	BuildDate    string           `json:"buildDate,omitempty"`
	Dependencies []DependencyInfo `json:"dependencies"`
}

// GetBuildInfo returns the build information embedded in the binary.
func GetBuildInfo() *BuildInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return &BuildInfo{
			GoVersion:    "unknown",
			MainModule:   ModulePath,
			MainVersion:  "unknown",
			Commit:       Commit,
			BuildDate:    BuildDate,
			Dependencies: []DependencyInfo{},
		}
	}

	buildInfo := &BuildInfo{
		GoVersion:    info.GoVersion,
		MainModule:   info.Path,
		MainVersion:  info.Main.Version,
		Commit:       Commit,
		BuildDate:    BuildDate,
		Dependencies: make([]DependencyInfo, 0, len(info.Deps)),
	}

	for _, dep := range info.Deps {
		depInfo := DependencyInfo{
			Path:    dep.Path,
			Version: dep.Version,
		}
		if dep.Replace != nil {
			depInfo.Replace = dep.Replace.Path + "@" + dep.Replace.Version
		}
		buildInfo.Dependencies = append(buildInfo.Dependencies, depInfo)
	}

	sort.Slice(buildInfo.Dependencies, func(i, j int) bool {
		return buildInfo.Dependencies[i].Path < buildInfo.Dependencies[j].Path
	})

	return buildInfo
}

// GetVersion returns the module version, "dev" for local builds.
func GetVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// Dependency returns the version of the named dependency, if linked in.
func Dependency(path string) (string, bool) {
	for _, dep := range GetBuildInfo().Dependencies {
		if dep.Path == path {
			return dep.Version, true
		}
	}
	return "", false
}
