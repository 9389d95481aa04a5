package tabclient

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// allowedFileExtensions is the accepted set of publishable datasource
// formats.
var allowedFileExtensions = map[string]struct{}{
	"tds":     {},
	"tdsx":    {},
	"tde":     {},
	"hyper":   {},
	"parquet": {},
}

// Content kinds recognised when sniffing an in-memory publish source.
const (
	contentKindZip = "zip"
	contentKindXML = "xml"
)

var zipMagic = []byte("PK")

// sniffContentKind inspects the first bytes of r and reports whether it
// looks like a zip archive or an XML document. The reader is rewound to its
// original position.
func sniffContentKind(r io.ReadSeeker) (string, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", fmt.Errorf("tabclient: sniffing content: %w", err)
	}

	header := make([]byte, 64)
	n, err := r.Read(header)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("tabclient: sniffing content: %w", err)
	}
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return "", fmt.Errorf("tabclient: sniffing content: %w", err)
	}
	header = header[:n]

	switch {
	case bytes.HasPrefix(header, zipMagic):
		return contentKindZip, nil
	case bytes.HasPrefix(bytes.TrimLeft(header, " \t\r\n\xef\xbb\xbf"), []byte("<?xml")):
		return contentKindXML, nil
	default:
		return "", nil
	}
}

// readerSize measures the remaining length of a seekable reader without
// consuming it.
func readerSize(r io.ReadSeeker) (int64, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("tabclient: measuring reader: %w", err)
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("tabclient: measuring reader: %w", err)
	}
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return 0, fmt.Errorf("tabclient: measuring reader: %w", err)
	}
	return end - pos, nil
}

// downloadFilename recovers the suggested filename from a
// Content-Disposition header value. The server may send a bare parameter
// list (`name="tableau_datasource"; filename="x.tdsx"`) without a
// disposition token, which ParseMediaType alone rejects.
func downloadFilename(value string) string {
	if value == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(value); err == nil {
		if filename := params["filename"]; filename != "" {
			return filename
		}
	}
	if _, params, err := mime.ParseMediaType("attachment; " + value); err == nil {
		return params["filename"]
	}
	return ""
}

// sanitizeFilename reduces a server-suggested filename to a safe basename.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "download"
	}
	return name
}

// makeDownloadPath resolves the destination for a downloaded file: target
// itself when it names a file, target/filename when target is an existing
// directory (or ends with a separator), filename in the working directory
// when target is empty.
func makeDownloadPath(target, filename string) string {
	if target == "" {
		return filename
	}
	if strings.HasSuffix(target, string(os.PathSeparator)) || strings.HasSuffix(target, "/") {
		return filepath.Join(target, filename)
	}
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return filepath.Join(target, filename)
	}
	return target
}
