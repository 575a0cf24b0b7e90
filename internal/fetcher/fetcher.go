// Package fetcher downloads remote data over HTTP and FTP and streams CSV
// and ZIP content.
package fetcher

import (
	"context"
	"io"
	"strings"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// ForURL picks a fetcher by URL scheme: FTP for ftp://, HTTP otherwise.
func ForURL(rawURL string) Fetcher {
	if strings.HasPrefix(strings.ToLower(rawURL), "ftp://") {
		return NewFTPFetcher(FTPOptions{})
	}
	return NewHTTPFetcher(HTTPOptions{})
}
