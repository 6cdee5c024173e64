// fetch/listing.go
package fetch

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/seqlab/amrsync/models"
)

// ErrEntryNotFound is returned when the target file has no usable line in a
// directory listing. A line with an unparseable date is deliberately the
// same outcome as no line at all: both mean "no metadata".
var ErrEntryNotFound = errors.New("no listing entry found for target file")

// Unix LIST lines carry dates in two shapes: recent files get a
// time-of-day ("Mar 11 14:22", year implied current), old files get a year
// ("Jan 5 2023", midnight implied). Both occur within the same listing.
const (
	listRecentLayout = "Jan 2 15:04"
	listOldLayout    = "Jan 2 2006"
)

// ParseListingEntry scans a raw directory listing for the line describing
// targetName and returns its metadata. The filename is the last
// whitespace-separated token of a line, the byte size the fifth, and the
// date the sixth through eighth. Timestamps are interpreted in UTC.
func ParseListingEntry(listing string, targetName string) (*models.RemoteFileInfo, error) {
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(strings.TrimRight(line, "\r"))
		if len(fields) < 9 {
			continue
		}
		if fields[len(fields)-1] != targetName {
			continue
		}

		size, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, ErrEntryNotFound
		}

		modTime, err := parseListDate(fields[5], fields[6], fields[7])
		if err != nil {
			return nil, ErrEntryNotFound
		}

		return &models.RemoteFileInfo{
			Filename:     targetName,
			LastModified: modTime,
			Size:         size,
		}, nil
	}
	return nil, ErrEntryNotFound
}

// parseListDate resolves the month/day/time-or-year triple. The recent
// (HH:MM) form is tried first and takes the current year; the old (YYYY)
// form second. Anything else fails.
func parseListDate(month, day, timeOrYear string) (time.Time, error) {
	joined := month + " " + day + " " + timeOrYear

	if t, err := time.ParseInLocation(listRecentLayout, joined, time.UTC); err == nil {
		now := time.Now().UTC()
		return time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
	}

	t, err := time.ParseInLocation(listOldLayout, joined, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
