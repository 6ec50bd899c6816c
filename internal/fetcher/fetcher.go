// Package fetcher opens census and incident assets from local disk, HTTP or FTP
// and parses them as CSV or XLSX.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Opener resolves asset locations (plain paths, http(s):// or ftp:// URLs)
// to readable streams.
type Opener struct {
	HTTP Fetcher
	FTP  Fetcher
}

// NewOpener creates an Opener backed by the default HTTP and FTP fetchers.
func NewOpener(httpOpts HTTPOptions, ftpOpts FTPOptions) *Opener {
	return &Opener{
		HTTP: NewHTTPFetcher(httpOpts),
		FTP:  NewFTPFetcher(ftpOpts),
	}
}

// IsRemote reports whether location is an http, https or ftp URL.
func IsRemote(location string) bool {
	return schemeOf(location) != ""
}

func schemeOf(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp":
		return strings.ToLower(u.Scheme)
	default:
		return ""
	}
}

// Open returns a reader for the asset at location. The caller must close it.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	switch schemeOf(location) {
	case "http", "https":
		return o.HTTP.Download(ctx, location)
	case "ftp":
		return o.FTP.Download(ctx, location)
	}

	f, err := os.Open(location)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", location)
	}
	return f, nil
}

// Localize makes the asset available as a file on disk. Local paths are
// returned unchanged; remote assets are downloaded into tempDir and the
// returned cleanup removes the copy.
func (o *Opener) Localize(ctx context.Context, location, tempDir string) (string, func(), error) {
	noop := func() {}

	var f Fetcher
	switch schemeOf(location) {
	case "http", "https":
		f = o.HTTP
	case "ftp":
		f = o.FTP
	default:
		if _, err := os.Stat(location); err != nil {
			return "", noop, eris.Wrapf(err, "stat %s", location)
		}
		return location, noop, nil
	}

	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return "", noop, eris.Wrapf(err, "create temp dir %s", tempDir)
	}
	tmp, err := os.CreateTemp(tempDir, "asset-*"+Ext(location))
	if err != nil {
		return "", noop, eris.Wrap(err, "create temp file")
	}
	path := tmp.Name()
	_ = tmp.Close()

	cleanup := func() { _ = os.Remove(path) }
	if _, err := f.DownloadToFile(ctx, location, path); err != nil {
		cleanup()
		return "", noop, err
	}
	return path, cleanup, nil
}

// Ext returns the lowercased file extension of a path or URL, ignoring any query string.
func Ext(location string) string {
	if u, err := url.Parse(location); err == nil && u.Scheme != "" {
		location = u.Path
	}
	return strings.ToLower(filepath.Ext(location))
}
