package auth

import "strings"

const (
	LoginPath    = "/login"
	ProjectsPath = "/projects"
	SettingsPath = "/settings"
)

var protectedPrefixes = []string{ProjectsPath, SettingsPath}

func hasPrefixSegment(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Guard decides where a screen request ends up. It returns the path to redirect to, or
// "" when path may be shown as is.
func Guard(path string, authenticated bool) string {
	if path == "" || path == "/" {
		if authenticated {
			return ProjectsPath
		}
		return LoginPath
	}

	if hasPrefixSegment(path, LoginPath) {
		if authenticated {
			return ProjectsPath
		}
		return ""
	}

	for _, prefix := range protectedPrefixes {
		if hasPrefixSegment(path, prefix) && !authenticated {
			return LoginPath
		}
	}
	return ""
}
