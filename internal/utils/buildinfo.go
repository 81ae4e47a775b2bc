package utils

import (
	"runtime/debug"
)

const (
	unknownVersion       = "unknown"
	develVersion         = "(devel)"
	revisionDisplayWidth = 12
	settingRevision      = "vcs.revision"
	settingModified      = "vcs.modified"
)

// Version is stamped at release time with
// -ldflags "-X github.com/temirov/filebundler/internal/utils.Version=v1.2.3".
var Version = ""

// ApplicationVersion reports the stamped version, then the module version
// from build info, then the VCS revision the binary was built from.
func ApplicationVersion() string {
	if Version != "" {
		return Version
	}
	buildInfo, available := debug.ReadBuildInfo()
	if !available {
		return unknownVersion
	}
	if buildInfo.Main.Version != "" && buildInfo.Main.Version != develVersion {
		return buildInfo.Main.Version
	}
	return revisionVersion(buildInfo.Settings)
}

func revisionVersion(settings []debug.BuildSetting) string {
	var revision string
	var modified bool
	for _, setting := range settings {
		switch setting.Key {
		case settingRevision:
			revision = setting.Value
		case settingModified:
			modified = setting.Value == "true"
		}
	}
	if revision == "" {
		return unknownVersion
	}
	if len(revision) > revisionDisplayWidth {
		revision = revision[:revisionDisplayWidth]
	}
	if modified {
		revision += "-dirty"
	}
	return "devel-" + revision
}
