package clientinfo

import (
	"fmt"
	"strings"

	"github.com/mssola/useragent"
)

// Describe condenses a User-Agent header into "Browser Version (OS)" with a
// mobile or bot marker. Empty input yields "unknown".
func Describe(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return "unknown"
	}
	ua := useragent.New(header)
	name, version := ua.Browser()
	if name == "" {
		name = "unknown"
	}
	if major, _, found := strings.Cut(version, "."); found {
		version = major
	}

	label := strings.TrimSpace(name + " " + version)
	if os := ua.OS(); os != "" {
		label = fmt.Sprintf("%s (%s)", label, os)
	}
	switch {
	case ua.Bot():
		label += " [bot]"
	case ua.Mobile():
		label += " [mobile]"
	}
	return label
}
