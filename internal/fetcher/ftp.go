package fetcher

import (
	"context"
	"errors"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrRemoteNotFound is returned when the server reports the requested file
// does not exist.
var ErrRemoteNotFound = eris.New("fetcher: remote file not found")

// FTPOptions configures the FTP fetcher. Empty credentials log in anonymously.
type FTPOptions struct {
	Timeout  time.Duration
	User     string
	Password string
	MaxBytes int64 // reject files the server reports as larger; 0 = no limit
}

// FTPFetcher downloads files over FTP (the IBGE census mirrors are FTP only).
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates a new FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.User == "" {
		opts.User = "anonymous"
		opts.Password = "anonymous@"
	}
	return &FTPFetcher{opts: opts}
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host string, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	if u.Path == "" || u.Path == "/" {
		return "", "", eris.New("empty path in ftp url")
	}

	return host, u.Path, nil
}

// ftpConnReader closes the FTP response and the control connection together.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "close ftp response")
	}
	return eris.Wrap(quitErr, "quit ftp connection")
}

// Download logs in, checks the file's size when the server supports SIZE, and
// returns a reader over its contents. The caller must close the returned
// ReadCloser to release the FTP connection.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	host, path, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("component", "fetcher"), zap.String("host", host), zap.String("path", path))
	log.Debug("ftp: connecting")

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}

	if err := conn.Login(f.opts.User, f.opts.Password); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "ftp login as %s", f.opts.User)
	}

	if err := f.checkSize(conn, path, log); err != nil {
		_ = conn.Quit()
		return nil, err
	}

	resp, err := conn.Retr(path)
	if err != nil {
		_ = conn.Quit()
		if isFileUnavailable(err) {
			return nil, eris.Wrapf(ErrRemoteNotFound, "ftp retrieve %s", path)
		}
		return nil, eris.Wrap(err, "ftp retrieve")
	}

	return &ftpConnReader{resp: resp, conn: conn}, nil
}

// checkSize asks the server for the file size. A missing file or one above
// MaxBytes is an error; servers without SIZE support are let through.
func (f *FTPFetcher) checkSize(conn *ftp.ServerConn, path string, log *zap.Logger) error {
	size, err := conn.FileSize(path)
	switch {
	case err == nil:
	case isFileUnavailable(err):
		return eris.Wrapf(ErrRemoteNotFound, "ftp size %s", path)
	default:
		log.Debug("ftp: size unavailable", zap.Error(err))
		return nil
	}

	if f.opts.MaxBytes > 0 && size > f.opts.MaxBytes {
		return eris.Errorf("ftp: %s is %d bytes, exceeds limit of %d", path, size, f.opts.MaxBytes)
	}
	log.Debug("ftp: remote size", zap.Int64("bytes", size))
	return nil
}

func isFileUnavailable(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable
}

// DownloadToFile downloads the FTP URL to a local file. Returns bytes written.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, ftpURL string, path string) (int64, error) {
	rc, err := f.Download(ctx, ftpURL)
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck

	return writeFile(path, rc)
}
