package install

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"buildtools/internal/logger"
)

var (
	// ErrDownload is a network fetch failure that persisted through
	// every retry.
	ErrDownload = errors.New("download failed")

	// ErrIntegrity is a digest mismatch on a downloaded binary. It is
	// never retried: the source is corrupted or tampered with.
	ErrIntegrity = errors.New("integrity check failed")
)

const (
	downloadAttempts = 5
	downloadDelay    = 3 * time.Second
)

// Downloader fetches URLs to local files, retrying transient
// failures a fixed number of times with a fixed delay.
type Downloader struct {
	client *http.Client
	delay  time.Duration
	log    *logger.Logger
}

// NewDownloader creates a downloader with the standard retry delay.
func NewDownloader(log *logger.Logger) *Downloader {
	return &Downloader{
		client: &http.Client{},
		delay:  downloadDelay,
		log:    log,
	}
}

// Fetch downloads url to dest, overwriting any existing file. Up to
// 5 attempts are made before giving up with ErrDownload.
func (d *Downloader) Fetch(url, dest string) error {
	var lastErr error
	for attempt := 0; attempt < downloadAttempts; attempt++ {
		if attempt > 0 {
			d.log.Infof("Retrying download...")
			time.Sleep(d.delay)
		}

		err := d.fetchOnce(url, dest)
		if err == nil {
			return nil
		}
		d.log.Warnf("Download failed: %v", err)
		lastErr = err
	}
	return fmt.Errorf("%w: %s after %d attempts: %w", ErrDownload, url, downloadAttempts, lastErr)
}

func (d *Downloader) fetchOnce(url, dest string) error {
	resp, err := d.client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return nil
}

// SHA256File returns the hex SHA-256 digest of a file's content.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// VerifySHA256 checks localPath against the expected digest for url.
// A mismatch is ErrIntegrity and must abort the installation.
func VerifySHA256(url, localPath, expected string) error {
	actual, err := SHA256File(localPath)
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("%w: hash mismatch for %s, expected %s but got %s", ErrIntegrity, url, expected, actual)
	}
	return nil
}
