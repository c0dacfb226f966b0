package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"network-monitor/src/transports"
)

// DefaultTimeout bounds a whole download, redirects included.
const DefaultTimeout = 30 * time.Second

// -----------------------------------------------------------------------------

// DownloadFile fetches url into destination, trusting only the certificates in
// caCertFile. It reports success; on failure nothing is left at destination.
func DownloadFile(url, destination, caCertFile string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	return Download(ctx, url, destination, caCertFile) == nil
}

// -----------------------------------------------------------------------------

// Download is DownloadFile with a context and the failure reason.
func Download(ctx context.Context, url, destination, caCertFile string) error {
	roots, err := transports.LoadTrustStore(caCertFile)
	if err != nil {
		return err
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: roots, MinVersion: tls.VersionTLS12},
			Proxy:           http.ProxyFromEnvironment,
		},
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	return writeFile(destination, resp.Body)
}

// -----------------------------------------------------------------------------

// writeFile streams body into a temporary sibling of destination and renames
// it into place once complete.
func writeFile(destination string, body io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(destination), filepath.Base(destination)+".part-*")
	if err != nil {
		return fmt.Errorf("create %s: %w", destination, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", destination, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", destination, err)
	}
	if err := os.Rename(tmpName, destination); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", destination, err)
	}
	return nil
}
