package core

import (
	"regexp"
	"strings"
)

// IsRepoURL checks if the input looks like a git repository URL.
// Supports:
//   - HTTPS URLs: https://github.com/user/repo, https://github.com/user/repo.git
//   - SSH URLs: git@github.com:user/repo.git
//   - Git protocol: git://github.com/user/repo.git
//   - file:// URLs
func IsRepoURL(input string) bool {
	switch {
	case strings.HasPrefix(input, "https://"), strings.HasPrefix(input, "http://"):
		return isGitHostURL(input)
	case strings.HasPrefix(input, "git@"),
		strings.HasPrefix(input, "git://"),
		strings.HasPrefix(input, "ssh://"),
		strings.HasPrefix(input, "file://"):
		return true
	}
	return false
}

// isGitHostURL checks if an HTTP(S) URL is a known git host or ends with .git
func isGitHostURL(url string) bool {
	knownHosts := []string{
		"github.com",
		"gitlab.com",
		"bitbucket.org",
		"codeberg.org",
		"sr.ht",
		"gitea.com",
	}

	lowered := strings.ToLower(url)
	for _, host := range knownHosts {
		if strings.Contains(lowered, host) {
			return true
		}
	}
	return strings.HasSuffix(url, ".git")
}

// NormalizeRepoURL appends .git to HTTPS URLs of known hosts.
func NormalizeRepoURL(url string) string {
	if strings.HasSuffix(url, ".git") {
		return url
	}
	url = strings.TrimSuffix(url, "/")
	if (strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "http://")) && isGitHostURL(url) {
		return url + ".git"
	}
	return url
}

var urlPath = regexp.MustCompile(`^(?:https?|git|ssh|file)://[^/]*/(.+)$`)

// NameFromURL derives a core folder name from a repository URL or path:
// the last path component without .git.
func NameFromURL(input string) string {
	input = strings.TrimSuffix(strings.TrimSuffix(input, "/"), ".git")

	if strings.HasPrefix(input, "git@") {
		if idx := strings.Index(input, ":"); idx != -1 {
			input = input[idx+1:]
		}
	}
	if m := urlPath.FindStringSubmatch(input); len(m) > 1 {
		input = m[1]
	}

	parts := strings.Split(input, "/")
	return parts[len(parts)-1]
}
