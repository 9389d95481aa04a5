package tabclient

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniffContentKind(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"zip archive", []byte("PK\x03\x04rest of archive"), contentKindZip},
		{"xml document", []byte(`<?xml version="1.0"?><datasource/>`), contentKindXML},
		{"xml with BOM", append([]byte{0xef, 0xbb, 0xbf}, []byte(`<?xml version="1.0"?>`)...), contentKindXML},
		{"xml with leading whitespace", []byte("\n  <?xml version=\"1.0\"?>"), contentKindXML},
		{"unrecognized", []byte("plain text"), ""},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(tt.content)
			kind, err := sniffContentKind(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)

			// Sniffing must not consume the reader.
			rest, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, tt.content, append([]byte(nil), rest...))
		})
	}
}

func TestReaderSize(t *testing.T) {
	r := bytes.NewReader([]byte("0123456789"))

	size, err := readerSize(r)
	require.NoError(t, err)
	assert.EqualValues(t, 10, size)

	// Size is measured from the current position.
	_, err = r.Seek(4, io.SeekStart)
	require.NoError(t, err)
	size, err = readerSize(r)
	require.NoError(t, err)
	assert.EqualValues(t, 6, size)

	pos, err := r.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.EqualValues(t, 4, pos)
}

func TestDownloadFilename(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"standard attachment", `attachment; filename="World Indicators.tdsx"`, "World Indicators.tdsx"},
		{"bare parameter list", `name="tableau_datasource"; filename="Sales data source.tdsx"`, "Sales data source.tdsx"},
		{"no filename parameter", `attachment; name="tableau_datasource"`, ""},
		{"empty", "", ""},
		{"garbage", `;;;===`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, downloadFilename(tt.value))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Sales.tdsx", "Sales.tdsx"},
		{"path components stripped", "../../etc/passwd", "passwd"},
		{"windows path stripped", `C:\temp\Sales.tdsx`, "Sales.tdsx"},
		{"reserved characters replaced", `a:b*c?.tdsx`, "a-b-c-.tdsx"},
		{"empty falls back", "", "download"},
		{"dot-dot falls back", "..", "download"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.in))
		})
	}
}

func TestMakeDownloadPath(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, "Sales.tdsx", makeDownloadPath("", "Sales.tdsx"))
	assert.Equal(t, filepath.Join(dir, "Sales.tdsx"), makeDownloadPath(dir, "Sales.tdsx"))
	assert.Equal(t, filepath.Join(dir, "Sales.tdsx"), makeDownloadPath(dir+"/", "Sales.tdsx"))

	target := filepath.Join(dir, "explicit-name.tdsx")
	assert.Equal(t, target, makeDownloadPath(target, "Sales.tdsx"))

	existing := filepath.Join(dir, "existing.tdsx")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o600))
	assert.Equal(t, existing, makeDownloadPath(existing, "Sales.tdsx"))
}
