// fetch/http_mirror_test.go
package fetch

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqlab/amrsync/logger"
)

const autoindexPage = `<html><head><title>Index of /genomes/123.456</title></head>
<body><h1>Index of /genomes/123.456</h1><hr><pre><a href="../">../</a>
<a href="123.456.fna">123.456.fna</a>                                05-Jan-2023 00:00             1024
<a href="123.456.features.tab">123.456.features.tab</a>              05-Jan-2023 00:12            99133
<a href="old/">old/</a>                                              14-Feb-2022 08:30                -
</pre><hr></body></html>`

func TestHTTPMirror_ListDirectoryNormalizesAutoindex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, autoindexPage)
	}))
	defer srv.Close()

	m := NewHTTPMirror(time.Minute, 1, 0)
	listing, err := m.ListDirectory(srv.URL + "/genomes/123.456")
	require.NoError(t, err)

	info, err := ParseListingEntry(listing, "123.456.fna")
	require.NoError(t, err)
	assert.Equal(t, int64(1024), info.Size)
	assert.Equal(t, time.Date(2023, time.January, 5, 0, 0, 0, 0, time.UTC), info.LastModified)

	// The parent-directory link must not leak into the listing.
	_, err = ParseListingEntry(listing, "..")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestHTTPMirror_ListDirectoryRetriesExhausted(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewHTTPMirror(time.Minute, 2, time.Millisecond)
	_, err := m.ListDirectory(srv.URL + "/genomes/1.1")
	assert.ErrorContains(t, err, "after 2 attempts")
	assert.Equal(t, 2, calls)
}

func TestHTTPMirror_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ">contig1\nACGT\n")
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "sub", "1.1.fna")
	m := NewHTTPMirror(time.Minute, 1, 0)
	require.NoError(t, m.Download(srv.URL+"/genomes/1.1/1.1.fna", dest))

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, ">contig1\nACGT\n", string(content))
}

func TestHTTPMirror_DownloadNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	m := NewHTTPMirror(time.Minute, 1, 0)
	err := m.Download(srv.URL+"/missing.fna", filepath.Join(t.TempDir(), "missing.fna"))
	assert.ErrorContains(t, err, "status code 404")
}

func TestNormalizeAutoindexRow_OldAndRecentYears(t *testing.T) {
	line, ok := normalizeAutoindexRow("a.fna", "05-Jan-2019 11:30", "42")
	require.True(t, ok)
	assert.Equal(t, "-rw-r--r-- 1 ftp ftp 42 Jan 5 2019 a.fna", line)

	recent := time.Now().UTC().Format("02-Jan-2006") + " 11:30"
	line, ok = normalizeAutoindexRow("b.fna", recent, "7")
	require.True(t, ok)
	assert.Contains(t, line, "11:30 b.fna")
}

func TestNormalizeAutoindexRow_Directory(t *testing.T) {
	line, ok := normalizeAutoindexRow("old/", "14-Feb-2022 08:30", "-")
	require.True(t, ok)
	assert.Equal(t, "drwxr-xr-x 1 ftp ftp 0 Feb 14 2022 old", line)
}

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}
