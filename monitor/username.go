package monitor

import "os"

// LocalUsername resolves a best-effort local username for use as a
// volunteer name. It never fails: an empty string is a valid (if
// unhelpful) result on a host with neither environment variable set.
func LocalUsername() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return os.Getenv("USERNAME")
}
