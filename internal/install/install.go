// Package install bootstraps the pinned bazelisk launcher and the
// buildozer BUILD-file editor onto a local bin directory, verifying
// the launcher's digest against a hard-coded table.
package install

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"buildtools/internal/logger"
)

const (
	bazeliskURLBase  = "https://mdb-build-public.s3.amazonaws.com/bazelisk-binaries/v1.19.0/"
	buildozerURLBase = "https://github.com/bazelbuild/buildtools/releases/download/v7.3.1/"
)

// bazeliskHashes pins the SHA-256 digest of every published bazelisk
// binary, keyed by exact source URL. A downloaded file that does not
// match its digest is discarded.
var bazeliskHashes = map[string]string{
	bazeliskURLBase + "bazelisk-darwin-amd64":      "f2ba5f721a995b54bab68c6b76a340719888aa740310e634771086b6d1528ecd",
	bazeliskURLBase + "bazelisk-darwin-arm64":      "69fa21cd2ccffc2f0970c21aa3615484ba89e3553ecce1233a9d8ad9570d170e",
	bazeliskURLBase + "bazelisk-linux-amd64":       "d28b588ac0916abd6bf02defb5433f6eddf7cba35ffa808eabb65a44aab226f7",
	bazeliskURLBase + "bazelisk-linux-arm64":       "861a16ba9979613e70bd3d2f9d9ab5e3b59fe79471c5753acdc9c431ab6c9d94",
	bazeliskURLBase + "bazelisk-windows-amd64.exe": "d04555245a99dfb628e33da24e2b9198beb8f46d7e7661c313eb045f6a59f5e4",
}

// Bazel is a self-extracting zip launcher and needs read permission
// on its own executable to unpack itself, so the binary is readable
// by everyone.
const bazeliskPerms = os.FileMode(0o775)

// buildozer only needs owner access.
const buildozerPerms = os.FileMode(0o700)

// Installer downloads and wires up the build tool binaries. The
// platform and URL fields default to the host and the pinned release
// locations; tests override them.
type Installer struct {
	dl           *Downloader
	log          *logger.Logger
	goos         string
	goarch       string
	bazeliskURL  string
	buildozerURL string
	hashes       map[string]string
}

// NewInstaller creates an installer for the given host platform.
func NewInstaller(goos, goarch string, log *logger.Logger) *Installer {
	return &Installer{
		dl:           NewDownloader(log),
		log:          log,
		goos:         goos,
		goarch:       goarch,
		bazeliskURL:  bazeliskURLBase,
		buildozerURL: buildozerURLBase,
		hashes:       bazeliskHashes,
	}
}

// InstallBazelisk ensures the pinned bazelisk binary is present and
// executable in binDir and returns its path. An existing binary
// short-circuits the download but still gets its permissions reset.
// Unsupported platforms are skipped with a warning and an empty path.
func (i *Installer) InstallBazelisk(binDir string) (string, error) {
	binaryPath := filepath.Join(binDir, "bazelisk")

	if _, err := os.Stat(binaryPath); err == nil {
		i.log.Infof("bazelisk already exists (%s), skipping download", binaryPath)
		if err := os.Chmod(binaryPath, bazeliskPerms); err != nil {
			return "", fmt.Errorf("setting permissions on %s: %w", binaryPath, err)
		}
		return binaryPath, nil
	}

	if !supportedOS(i.goos) || !supportedArch(i.goarch) {
		i.log.Warnf("No published bazelisk release for %s/%s, not installing.", i.goos, i.goarch)
		return "", nil
	}

	url := i.bazeliskURL + "bazelisk-" + i.goos + "-" + i.goarch + exeSuffix(i.goos)
	expected, ok := i.hashes[url]
	if !ok {
		i.log.Warnf("No pinned digest for %s, not installing.", url)
		return "", nil
	}

	i.log.Infof("Downloading bazelisk...")
	if err := i.dl.Fetch(url, binaryPath); err != nil {
		return "", err
	}
	if err := VerifySHA256(url, binaryPath, expected); err != nil {
		os.Remove(binaryPath)
		return "", err
	}

	if err := os.Chmod(binaryPath, bazeliskPerms); err != nil {
		return "", fmt.Errorf("setting permissions on %s: %w", binaryPath, err)
	}
	i.log.Infof("Downloaded bazelisk to %s", binaryPath)
	return binaryPath, nil
}

// InstallBuildozer downloads the pinned buildozer release into binDir
// and returns its path. Platforms without a published release are
// skipped with a warning and an empty path.
func (i *Installer) InstallBuildozer(binDir string) (string, error) {
	if !supportedOS(i.goos) || !supportedArch(i.goarch) {
		i.log.Warnf("Unsupported OS for buildozer, not installing.")
		return "", nil
	}
	if i.goos == "windows" && i.goarch == "arm64" {
		i.log.Warnf("There are no published arm windows releases for buildozer, not installing.")
		return "", nil
	}

	ext := exeSuffix(i.goos)
	url := i.buildozerURL + "buildozer-" + i.goos + "-" + i.goarch + ext
	binaryPath := filepath.Join(binDir, "buildozer"+ext)

	if err := i.dl.Fetch(url, binaryPath); err != nil {
		return "", err
	}
	if err := os.Chmod(binaryPath, buildozerPerms); err != nil {
		return "", fmt.Errorf("setting permissions on %s: %w", binaryPath, err)
	}
	return binaryPath, nil
}

// CreateBazelSymlink links the conventional "bazel" name to the
// bazelisk binary in binDir. An existing path under the alias is left
// alone.
func (i *Installer) CreateBazelSymlink(binDir string) (string, error) {
	alias := "bazel" + exeSuffix(i.goos)
	symlinkPath := filepath.Join(binDir, alias)

	if _, err := os.Lstat(symlinkPath); err == nil {
		i.log.Infof("Symlink %s already exists, skipping symlink creation", symlinkPath)
		return symlinkPath, nil
	}

	if err := os.Symlink(filepath.Join(binDir, "bazelisk"), symlinkPath); err != nil {
		return "", fmt.Errorf("creating symlink %s: %w", symlinkPath, err)
	}
	i.log.Infof("Symlinked bazel to %s", symlinkPath)
	return symlinkPath, nil
}

// CheckPath verifies that the symlinked alias is what the shell will
// actually run. When it is missing from PATH or shadowed by another
// install, PATH-configuration guidance is written to w.
func (i *Installer) CheckPath(w io.Writer, symlinkPath string) {
	misconfigured := false

	resolved, err := exec.LookPath(filepath.Base(symlinkPath))
	if err != nil {
		i.log.Warnf("bazel is not in the PATH. Please add %s to your PATH or call it with the absolute path.", filepath.Dir(symlinkPath))
		misconfigured = true
	} else if abs, _ := filepath.Abs(resolved); abs != mustAbs(symlinkPath) {
		i.log.Warnf("the bazel installed (%s) doesn't match the bazel in your path", resolved)
		misconfigured = true
	}

	if misconfigured {
		i.writePathGuidance(w, mustAbs(filepath.Dir(symlinkPath)))
	}
}

func mustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// writePathGuidance prints shell-appropriate instructions for putting
// binDir on the PATH.
func (i *Installer) writePathGuidance(w io.Writer, binDir string) {
	fmt.Fprintln(w, "To add it to your PATH, run: ")
	fmt.Fprintln(w)

	if i.goos == "windows" {
		fmt.Fprintf(w, "[Environment]::SetEnvironmentVariable(\"Path\", \"%s;\" + $env:Path, \"Machine\")\n", binDir)
		fmt.Fprintln(w, "refreshenv")
		return
	}

	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(w, "export PATH=%s:$PATH\n", binDir)
		return
	}

	for _, rc := range []string{".bashrc", ".bash_profile", ".zshrc"} {
		rcPath := filepath.Join(home, rc)
		if _, err := os.Stat(rcPath); err == nil {
			fmt.Fprintf(w, "echo \"export PATH=%s:$PATH\" >> ~/%s\n", binDir, rc)
			fmt.Fprintf(w, "source ~/%s\n", rc)
			return
		}
	}
	fmt.Fprintf(w, "export PATH=%s:$PATH\n", binDir)
}
