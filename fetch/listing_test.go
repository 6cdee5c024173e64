// fetch/listing_test.go
package fetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleListing = "" +
	"drwxr-xr-x 2 ftp ftp 4096 Feb 1 2022 subdir\n" +
	"-rw-r--r-- 1 ftp ftp 1024 Jan 5 2023 123.456.fna\n" +
	"-rw-r--r-- 1 ftp ftp 2048 Mar 11 14:22 789.fna\n" +
	"-rw-r--r-- 1 ftp ftp 0 Jun 30 2021 empty.fna\n"

func TestParseListingEntry_OldDateForm(t *testing.T) {
	info, err := ParseListingEntry(sampleListing, "123.456.fna")
	require.NoError(t, err)

	assert.Equal(t, "123.456.fna", info.Filename)
	assert.Equal(t, int64(1024), info.Size)
	assert.Equal(t, time.Date(2023, time.January, 5, 0, 0, 0, 0, time.UTC), info.LastModified)
}

func TestParseListingEntry_RecentDateForm(t *testing.T) {
	info, err := ParseListingEntry(sampleListing, "789.fna")
	require.NoError(t, err)

	assert.Equal(t, int64(2048), info.Size)
	assert.Equal(t, time.Now().UTC().Year(), info.LastModified.Year())
	assert.Equal(t, time.March, info.LastModified.Month())
	assert.Equal(t, 11, info.LastModified.Day())
	assert.Equal(t, 14, info.LastModified.Hour())
	assert.Equal(t, 22, info.LastModified.Minute())
	assert.Equal(t, time.UTC, info.LastModified.Location())
}

func TestParseListingEntry_ZeroSize(t *testing.T) {
	info, err := ParseListingEntry(sampleListing, "empty.fna")
	require.NoError(t, err)
	assert.Zero(t, info.Size)
}

func TestParseListingEntry_NotFound(t *testing.T) {
	_, err := ParseListingEntry(sampleListing, "nope.fna")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestParseListingEntry_UnparseableDateIsNotFound(t *testing.T) {
	listing := "-rw-r--r-- 1 ftp ftp 1024 Foo 99 zzzz 123.456.fna\n"
	_, err := ParseListingEntry(listing, "123.456.fna")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestParseListingEntry_ShortLinesIgnored(t *testing.T) {
	listing := "total 12\n-rw-r--r-- 1 ftp ftp 512 Jan 5 2023 a.fna\n"
	info, err := ParseListingEntry(listing, "a.fna")
	require.NoError(t, err)
	assert.Equal(t, int64(512), info.Size)
}

func TestParseListingEntry_CRLFListing(t *testing.T) {
	listing := "-rw-r--r-- 1 ftp ftp 512 Jan 5 2023 a.fna\r\n"
	info, err := ParseListingEntry(listing, "a.fna")
	require.NoError(t, err)
	assert.Equal(t, "a.fna", info.Filename)
}
