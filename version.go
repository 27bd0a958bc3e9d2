package txaudit

import "github.com/gofhir/txaudit/pkg/terminology"

// Version is the release version, set at build time with
// -ldflags "-X github.com/gofhir/txaudit.Version=v1.2.3".
var Version = "dev"

// UserAgent returns the User-Agent sent to terminology servers.
func UserAgent() string {
	if Version == "" || Version == "dev" {
		return terminology.DefaultUserAgent
	}
	return "txaudit/" + Version
}
