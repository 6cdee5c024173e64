// fetch/transport.go
package fetch

// RemoteTransport abstracts the remote mirror behind the two operations the
// pipeline needs: fetching a directory listing as raw text in the common
// Unix LIST shape, and downloading one file to a local path. It is injected
// into the services layer so tests can simulate listings and transfer
// failures deterministically.
type RemoteTransport interface {
	// ListDirectory returns the raw multi-line listing for a remote
	// directory. One line per file, whitespace-tokenized:
	// perms links owner group size month day time-or-year name.
	ListDirectory(dirURL string) (string, error)

	// Download transfers one remote file to localPath, creating parent
	// directories as needed. A partial file may be left behind on error.
	Download(fileURL string, localPath string) error
}
