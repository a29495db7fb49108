package install

// supportedOS and supportedArch gate which host platforms get a
// pinned binary. Anything outside the tables is skipped with a
// warning rather than failing the install.
func supportedOS(goos string) bool {
	switch goos {
	case "linux", "darwin", "windows":
		return true
	}
	return false
}

func supportedArch(goarch string) bool {
	switch goarch {
	case "amd64", "arm64":
		return true
	}
	return false
}

// exeSuffix returns the executable filename suffix for an OS.
func exeSuffix(goos string) string {
	if goos == "windows" {
		return ".exe"
	}
	return ""
}
