// fetch/ftp_client.go
package fetch

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/seqlab/amrsync/logger"
)

// FTPOptions carries the transport policy for the FTP client. All transfers
// are bounded three ways: a connect timeout, an overall session deadline,
// and a low-throughput stall abort.
type FTPOptions struct {
	ConnectTimeout  time.Duration
	TransferTimeout time.Duration
	StallWindow     time.Duration
	MinBytesPerSec  int64
	ListRetries     int
	ListRetryDelay  time.Duration
}

// FTPClient is the RemoteTransport implementation for the BV-BRC FTP
// mirror. Sessions are anonymous and upgraded to explicit TLS (AUTH TLS)
// when the server supports it; servers that refuse the upgrade are used in
// plaintext.
//
// One session is opened per operation. The pipeline is strictly sequential
// and low-volume, so connection reuse buys nothing here.
type FTPClient struct {
	opts FTPOptions
}

func NewFTPClient(opts FTPOptions) *FTPClient {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 20 * time.Second
	}
	if opts.TransferTimeout <= 0 {
		opts.TransferTimeout = 15 * time.Minute
	}
	if opts.StallWindow <= 0 {
		opts.StallWindow = 30 * time.Second
	}
	if opts.MinBytesPerSec <= 0 {
		opts.MinBytesPerSec = 64
	}
	if opts.ListRetries <= 0 {
		opts.ListRetries = 3
	}
	return &FTPClient{opts: opts}
}

// ListDirectory fetches the raw LIST output for a remote directory.
// Transport failures are retried internally with a fixed sleep; exhausting
// the retries fails ingestion of the file being checked, not the whole run.
func (c *FTPClient) ListDirectory(dirURL string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.opts.ListRetries; attempt++ {
		listing, err := c.listOnce(dirURL)
		if err == nil {
			return listing, nil
		}
		lastErr = err
		logger.WithField("attempt", attempt).Warnf("Fetcher: listing %s failed: %v", dirURL, err)
		if attempt < c.opts.ListRetries {
			time.Sleep(c.opts.ListRetryDelay)
		}
	}
	return "", fmt.Errorf("listing %s failed after %d attempts: %w", dirURL, c.opts.ListRetries, lastErr)
}

func (c *FTPClient) listOnce(dirURL string) (string, error) {
	addr, path, err := splitFTPURL(dirURL)
	if err != nil {
		return "", err
	}

	session, err := c.openSession(addr)
	if err != nil {
		return "", err
	}
	defer session.close()

	data, err := session.openDataConn(fmt.Sprintf("LIST %s", path))
	if err != nil {
		return "", err
	}

	raw, err := io.ReadAll(c.guard(data, session))
	closeErr := data.Close()
	if err != nil {
		return "", fmt.Errorf("failed to read listing for %s: %w", path, err)
	}
	if closeErr != nil {
		return "", fmt.Errorf("failed to close data connection: %w", closeErr)
	}
	if err := session.finishTransfer(); err != nil {
		return "", err
	}
	return string(raw), nil
}

// Download transfers one remote file to localPath. No internal retry: the
// caller composes this with the retry controller.
func (c *FTPClient) Download(fileURL string, localPath string) error {
	addr, path, err := splitFTPURL(fileURL)
	if err != nil {
		return err
	}

	session, err := c.openSession(addr)
	if err != nil {
		return err
	}
	defer session.close()

	data, err := session.openDataConn(fmt.Sprintf("RETR %s", path))
	if err != nil {
		return err
	}
	defer data.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", localPath, err)
	}
	outFile, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}

	written, err := io.Copy(outFile, c.guard(data, session))
	if closeErr := outFile.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to transfer %s: %w", fileURL, err)
	}
	if err := session.finishTransfer(); err != nil {
		return err
	}

	logger.Log.Debugf("Fetcher: transferred %d bytes from %s to %s", written, fileURL, localPath)
	return nil
}

// guard wraps a data connection with the stall watchdog.
func (c *FTPClient) guard(data net.Conn, s *ftpSession) io.Reader {
	return newStallReader(data, data, c.opts.MinBytesPerSec, c.opts.StallWindow, s.deadline)
}

// ftpSession is one logged-in control connection, possibly TLS-wrapped.
type ftpSession struct {
	raw      net.Conn
	text     *textproto.Conn
	host     string // hostname without port, for TLS SNI and PASV fallback
	secure   bool
	deadline time.Time
	opts     FTPOptions
}

func (c *FTPClient) openSession(addr string) (*ftpSession, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		addr = net.JoinHostPort(addr, "21")
	}

	raw, err := net.DialTimeout("tcp", addr, c.opts.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	s := &ftpSession{
		raw:      raw,
		text:     textproto.NewConn(raw),
		host:     host,
		deadline: time.Now().Add(c.opts.TransferTimeout),
		opts:     c.opts,
	}
	// The whole session, control and data, lives under one deadline.
	raw.SetDeadline(s.deadline)

	if _, _, err := s.text.ReadResponse(220); err != nil {
		s.close()
		return nil, fmt.Errorf("unexpected FTP greeting from %s: %w", addr, err)
	}

	if err := s.upgradeTLS(); err != nil {
		s.close()
		return nil, err
	}
	if err := s.login(); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// upgradeTLS attempts an explicit TLS upgrade (AUTH TLS). A refusal leaves
// the session in plaintext; only a failed handshake after acceptance is an
// error.
func (s *ftpSession) upgradeTLS() error {
	code, _, err := s.cmd("AUTH TLS")
	if err != nil || code != 234 {
		logger.Log.Debugf("Fetcher: server %s declined AUTH TLS, continuing in plaintext", s.host)
		return nil
	}

	tlsConn := tls.Client(s.raw, &tls.Config{ServerName: s.host})
	if err := tlsConn.Handshake(); err != nil {
		return fmt.Errorf("TLS handshake with %s failed: %w", s.host, err)
	}
	s.raw = tlsConn
	s.text = textproto.NewConn(tlsConn)
	s.secure = true

	if code, msg, err := s.cmd("PBSZ 0"); err != nil || code != 200 {
		return fmt.Errorf("PBSZ 0 rejected by %s: %d %s (%v)", s.host, code, msg, err)
	}
	if code, msg, err := s.cmd("PROT P"); err != nil || code != 200 {
		return fmt.Errorf("PROT P rejected by %s: %d %s (%v)", s.host, code, msg, err)
	}
	return nil
}

func (s *ftpSession) login() error {
	code, msg, err := s.cmd("USER anonymous")
	if err != nil {
		return fmt.Errorf("USER command failed: %w", err)
	}
	if code == 331 {
		code, msg, err = s.cmd("PASS anonymous@")
		if err != nil {
			return fmt.Errorf("PASS command failed: %w", err)
		}
	}
	if code != 230 {
		return fmt.Errorf("anonymous login refused by %s: %d %s", s.host, code, msg)
	}

	if code, msg, err := s.cmd("TYPE I"); err != nil || code != 200 {
		return fmt.Errorf("TYPE I rejected by %s: %d %s (%v)", s.host, code, msg, err)
	}
	return nil
}

var (
	pasvRegex = regexp.MustCompile(`\((\d+),(\d+),(\d+),(\d+),(\d+),(\d+)\)`)
	epsvRegex = regexp.MustCompile(`\(\|\|\|(\d+)\|\)`)
)

// openDataConn enters passive mode (EPSV preferred, PASV fallback), opens
// the data connection and issues the transfer command. The caller must read
// the data connection to EOF, close it and call finishTransfer.
func (s *ftpSession) openDataConn(command string) (net.Conn, error) {
	dataAddr, err := s.passiveAddr()
	if err != nil {
		return nil, err
	}

	data, err := net.DialTimeout("tcp", dataAddr, s.opts.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to open data connection to %s: %w", dataAddr, err)
	}
	data.SetDeadline(s.deadline)

	if s.secure {
		tlsData := tls.Client(data, &tls.Config{ServerName: s.host})
		if err := tlsData.Handshake(); err != nil {
			data.Close()
			return nil, fmt.Errorf("TLS handshake on data connection failed: %w", err)
		}
		data = tlsData
	}

	code, msg, err := s.cmd("%s", command)
	if err != nil {
		data.Close()
		return nil, fmt.Errorf("%q failed: %w", command, err)
	}
	if code != 150 && code != 125 {
		data.Close()
		return nil, fmt.Errorf("%q refused: %d %s", command, code, msg)
	}
	return data, nil
}

func (s *ftpSession) passiveAddr() (string, error) {
	if code, msg, err := s.cmd("EPSV"); err == nil && code == 229 {
		if m := epsvRegex.FindStringSubmatch(msg); m != nil {
			return net.JoinHostPort(s.host, m[1]), nil
		}
	}

	code, msg, err := s.cmd("PASV")
	if err != nil {
		return "", fmt.Errorf("PASV failed: %w", err)
	}
	if code != 227 {
		return "", fmt.Errorf("PASV refused: %d %s", code, msg)
	}
	m := pasvRegex.FindStringSubmatch(msg)
	if m == nil {
		return "", fmt.Errorf("unparseable PASV response: %q", msg)
	}
	p1, _ := strconv.Atoi(m[5])
	p2, _ := strconv.Atoi(m[6])
	host := fmt.Sprintf("%s.%s.%s.%s", m[1], m[2], m[3], m[4])
	return net.JoinHostPort(host, strconv.Itoa(p1*256+p2)), nil
}

// finishTransfer consumes the end-of-transfer reply on the control
// connection after the data connection has been drained and closed.
func (s *ftpSession) finishTransfer() error {
	code, msg, err := s.text.ReadResponse(0)
	if err != nil {
		return fmt.Errorf("failed to read transfer completion: %w", err)
	}
	if code != 226 && code != 250 {
		return fmt.Errorf("transfer did not complete cleanly: %d %s", code, msg)
	}
	return nil
}

func (s *ftpSession) cmd(format string, args ...interface{}) (int, string, error) {
	if _, err := s.text.Cmd(format, args...); err != nil {
		return 0, "", err
	}
	return s.text.ReadResponse(0)
}

func (s *ftpSession) close() {
	// Best effort; the server may already have dropped us.
	s.text.Cmd("QUIT")
	s.raw.Close()
}

// splitFTPURL splits ftp://host[:port]/path into a dial address and a
// remote path.
func splitFTPURL(rawURL string) (addr string, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid remote URL %q: %w", rawURL, err)
	}
	if u.Scheme != "ftp" {
		return "", "", fmt.Errorf("unsupported URL scheme %q in %q", u.Scheme, rawURL)
	}
	addr = u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "21")
	}
	path = u.Path
	if path == "" {
		path = "/"
	}
	return addr, path, nil
}
