// file: internal/archive/archive.go
// version: 1.0.0
// guid: 1b7a83f6-201f-4cfd-b145-5c9a84a626e8

package archive

import (
	"archive/zip"
	"io"
	"log"
	"os"

	"github.com/jdfalk/book-cataloger/internal/catalog"
	"github.com/jdfalk/book-cataloger/internal/models"
)

// WriteImageZip bundles every stored cover as {isbn}.jpg. Records without an
// image, or whose image file has since disappeared, are skipped.
func WriteImageZip(w io.Writer, books []*models.BookRecord) error {
	zw := zip.NewWriter(w)
	if err := addImages(zw, books, ""); err != nil {
		return err
	}
	return zw.Close()
}

// WriteBundleZip writes one archive holding catalog.csv plus every stored
// cover under images/.
func WriteBundleZip(w io.Writer, books []*models.BookRecord, opts catalog.Options) error {
	zw := zip.NewWriter(w)

	f, err := zw.Create("catalog.csv")
	if err != nil {
		return err
	}
	if err := catalog.Write(f, books, opts); err != nil {
		return err
	}

	if err := addImages(zw, books, "images/"); err != nil {
		return err
	}
	return zw.Close()
}

func addImages(zw *zip.Writer, books []*models.BookRecord, prefix string) error {
	for _, book := range books {
		if !book.HasImage() {
			continue
		}
		data, err := os.ReadFile(book.ImagePath)
		if err != nil {
			log.Printf("[WARN] Skipping cover for %s: %v", book.ISBN, err)
			continue
		}
		f, err := zw.Create(prefix + book.ISBN + ".jpg")
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			return err
		}
	}
	return nil
}
