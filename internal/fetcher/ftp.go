package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPFetcher retrieves item lists over FTP. Credentials come from the URL's
// userinfo; without them the login is anonymous.
type FTPFetcher struct {
	timeout time.Duration
}

var _ Fetcher = (*FTPFetcher)(nil)

// NewFTPFetcher creates an FTPFetcher. The dial timeout defaults to 30s.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPFetcher{timeout: opts.Timeout}
}

// ftpTarget is a parsed ftp:// location.
type ftpTarget struct {
	addr     string
	path     string
	user     string
	password string
}

func parseFTPURL(rawURL string) (ftpTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpTarget{}, eris.Wrap(err, "ftp: parse url")
	}
	if u.Scheme != "ftp" {
		return ftpTarget{}, eris.Errorf("ftp: expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		return ftpTarget{}, eris.Errorf("ftp: no file in %s", u.Redacted())
	}

	t := ftpTarget{addr: u.Host, path: u.Path, user: "anonymous", password: "anonymous@"}
	if u.Port() == "" {
		t.addr = net.JoinHostPort(u.Hostname(), "21")
	}
	if u.User != nil {
		t.user = u.User.Username()
		t.password, _ = u.User.Password()
	}
	return t, nil
}

// ftpBody closes the transfer and then the control connection.
type ftpBody struct {
	*ftp.Response
	conn *ftp.ServerConn
}

func (b *ftpBody) Close() error {
	closeErr := b.Response.Close()
	quitErr := b.conn.Quit()
	if closeErr != nil {
		return eris.Wrap(closeErr, "ftp: close transfer")
	}
	return eris.Wrap(quitErr, "ftp: quit")
}

// Download opens the file for reading. Closing the body releases the
// connection.
func (f *FTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	t, err := parseFTPURL(rawURL)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("ftp: retrieving item list", zap.String("addr", t.addr), zap.String("path", t.path))

	conn, err := ftp.Dial(t.addr, ftp.DialWithTimeout(f.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrapf(err, "ftp: dial %s", t.addr)
	}
	if err := conn.Login(t.user, t.password); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "ftp: login")
	}
	resp, err := conn.Retr(t.path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "ftp: retrieve %s", t.path)
	}
	return &ftpBody{Response: resp, conn: conn}, nil
}

// DownloadToFile copies the file to path and returns the bytes written.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck
	return writeFile(path, body)
}
