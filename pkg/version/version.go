package version

import "fmt"

// Version indicates what version of outer-count the binary belongs to
var Version string

// GitCommit indicates which git commit the binary was built from
var GitCommit string

// String returns a pretty string concatenation of Version and GitCommit
func String() string {
	return fmt.Sprintf("outer-count version: %s\ngit commit: %s\n", orUnknown(Version), orUnknown(GitCommit))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
