// fetch/http_mirror.go
package fetch

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/seqlab/amrsync/logger"
)

// HTTPMirror is the RemoteTransport implementation for the HTTPS autoindex
// mirror of the FTP tree. Autoindex rows are normalized into the common
// Unix listing shape so the same ParseListingEntry contract applies to both
// transports.
type HTTPMirror struct {
	client     *http.Client
	retries    int
	retryDelay time.Duration
}

func NewHTTPMirror(transferTimeout time.Duration, listRetries int, listRetryDelay time.Duration) *HTTPMirror {
	if transferTimeout <= 0 {
		transferTimeout = 15 * time.Minute
	}
	if listRetries <= 0 {
		listRetries = 3
	}
	return &HTTPMirror{
		client:     &http.Client{Timeout: transferTimeout},
		retries:    listRetries,
		retryDelay: listRetryDelay,
	}
}

// Autoindex rows: "<name>   02-Jan-2006 15:04   <size|->". The name column
// may contain a trailing slash for directories.
var autoindexRowRegex = regexp.MustCompile(`(?m)^(.+?)\s+(\d{2}-[A-Za-z]{3}-\d{4} \d{2}:\d{2})\s+(\d+|-)\s*$`)

const autoindexDateLayout = "02-Jan-2006 15:04"

// ListDirectory fetches the autoindex page for a remote directory and
// renders its rows as Unix LIST lines. Transport failures are retried with
// a fixed sleep, matching the FTP client's listing policy.
func (m *HTTPMirror) ListDirectory(dirURL string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= m.retries; attempt++ {
		listing, err := m.listOnce(dirURL)
		if err == nil {
			return listing, nil
		}
		lastErr = err
		logger.WithField("attempt", attempt).Warnf("Fetcher: listing %s failed: %v", dirURL, err)
		if attempt < m.retries {
			time.Sleep(m.retryDelay)
		}
	}
	return "", fmt.Errorf("listing %s failed after %d attempts: %w", dirURL, m.retries, lastErr)
}

func (m *HTTPMirror) listOnce(dirURL string) (string, error) {
	if !strings.HasSuffix(dirURL, "/") {
		dirURL += "/"
	}

	res, err := m.client.Get(dirURL)
	if err != nil {
		return "", fmt.Errorf("failed to get index page %s: %w", dirURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to get index page %s: status code %d", dirURL, res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse index page %s: %w", dirURL, err)
	}

	// nginx and apache both wrap plain autoindex output in a <pre> block;
	// fall back to the whole document for themed indexes.
	indexText := doc.Find("pre").Text()
	if indexText == "" {
		indexText = doc.Text()
	}

	var lines []string
	for _, row := range autoindexRowRegex.FindAllStringSubmatch(indexText, -1) {
		line, ok := normalizeAutoindexRow(row[1], row[2], row[3])
		if ok {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		logger.Log.Warnf("Fetcher: no autoindex rows recognized on %s", dirURL)
	}
	return strings.Join(lines, "\n"), nil
}

// normalizeAutoindexRow converts one autoindex row into a Unix LIST line.
// Like real LIST output, entries from the current year keep their
// time-of-day and older entries carry the year instead.
func normalizeAutoindexRow(name, modified, size string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || name == ".." || name == "../" {
		return "", false
	}

	t, err := time.ParseInLocation(autoindexDateLayout, modified, time.UTC)
	if err != nil {
		return "", false
	}

	perms := "-rw-r--r--"
	if strings.HasSuffix(name, "/") {
		perms = "drwxr-xr-x"
		name = strings.TrimSuffix(name, "/")
	}

	bytes := int64(0)
	if size != "-" {
		bytes, err = strconv.ParseInt(size, 10, 64)
		if err != nil {
			return "", false
		}
	}

	var datePart string
	if t.Year() == time.Now().UTC().Year() {
		datePart = t.Format("Jan 2 15:04")
	} else {
		datePart = t.Format("Jan 2 2006")
	}

	return fmt.Sprintf("%s 1 ftp ftp %d %s %s", perms, bytes, datePart, name), true
}

// Download fetches one file from the HTTPS mirror and saves it to
// localPath.
func (m *HTTPMirror) Download(fileURL string, localPath string) error {
	logger.Log.Debugf("Fetcher: downloading %s to %s", fileURL, localPath)

	resp, err := m.client.Get(fileURL)
	if err != nil {
		return fmt.Errorf("failed to make GET request to %s: %w", fileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download file from %s: received status code %d", fileURL, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(localPath), err)
	}

	outFile, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, resp.Body); err != nil {
		return fmt.Errorf("failed to copy downloaded content to %s: %w", localPath, err)
	}
	return nil
}
