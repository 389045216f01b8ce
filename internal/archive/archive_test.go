// file: internal/archive/archive_test.go
// version: 1.0.0
// guid: 75e7cb94-9993-49b3-a411-f0b2f219605e

package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/book-cataloger/internal/catalog"
	"github.com/jdfalk/book-cataloger/internal/models"
)

func writeCover(t *testing.T, dir, isbn string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, isbn+".jpg")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func readEntry(t *testing.T, zr *zip.Reader, name string) []byte {
	t.Helper()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return data
	}
	t.Fatalf("entry %s not found in archive", name)
	return nil
}

func TestWriteImageZip(t *testing.T) {
	dir := t.TempDir()
	cover := bytes.Repeat([]byte{0xFF}, 2000)

	withImage := models.NewBookRecord("9780140449266")
	withImage.Title = "The Odyssey"
	withImage.ImagePath = writeCover(t, dir, withImage.ISBN, cover)

	noImage := models.NewBookRecord("0000000000")
	noImage.Title = "Unknown"

	var buf bytes.Buffer
	err := WriteImageZip(&buf, []*models.BookRecord{withImage, noImage})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "9780140449266.jpg", zr.File[0].Name)
	assert.Equal(t, cover, readEntry(t, zr, "9780140449266.jpg"))
}

func TestWriteImageZipSkipsMissingFile(t *testing.T) {
	rec := models.NewBookRecord("9780140449266")
	rec.Title = "The Odyssey"
	rec.ImagePath = filepath.Join(t.TempDir(), "gone.jpg")

	var buf bytes.Buffer
	err := WriteImageZip(&buf, []*models.BookRecord{rec})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Empty(t, zr.File)
}

func TestWriteBundleZip(t *testing.T) {
	dir := t.TempDir()
	cover := bytes.Repeat([]byte{0xAB}, 1500)

	rec := models.NewBookRecord("9780140449266")
	rec.Title = "The Odyssey"
	rec.Author = "Homer"
	rec.ImagePath = writeCover(t, dir, rec.ISBN, cover)

	var buf bytes.Buffer
	err := WriteBundleZip(&buf, []*models.BookRecord{rec}, catalog.Options{Location: "My Store"})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	csvData := readEntry(t, zr, "catalog.csv")
	assert.Contains(t, string(csvData), "The Odyssey by Homer")
	assert.Contains(t, string(csvData), "Price My Store")

	assert.Equal(t, cover, readEntry(t, zr, "images/9780140449266.jpg"))
}
