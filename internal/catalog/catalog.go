// file: internal/catalog/catalog.go
// version: 1.0.0
// guid: a1b0aa26-e94d-4366-b8fa-220f62ebc9b4

package catalog

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/jdfalk/book-cataloger/internal/models"
)

// Options control catalog generation.
type Options struct {
	// Location is the business location name templated into the
	// per-location stock columns of the Square import header.
	Location string
}

// Columns builds the Square import header. The last six columns are
// location-specific and carry the location name verbatim.
func Columns(location string) []string {
	return []string{
		"Token",
		"Item Name",
		"Customer-facing Name",
		"Variation Name",
		"SKU",
		"Description",
		"Categories",
		"Reporting Category",
		"SEO Title",
		"SEO Description",
		"Permalink",
		"GTIN",
		"Square Online Item Visibility",
		"Item Type",
		"Weight (lb)",
		"Social Media Link Title",
		"Social Media Link Description",
		"Shipping Enabled",
		"Self-serve Ordering Enabled",
		"Delivery Enabled",
		"Pickup Enabled",
		"Price",
		"Online Sale Price",
		"Archived",
		"Sellable",
		"Contains Alcohol",
		"Stockable",
		"Skip Detail Screen in POS",
		"Option Name 1",
		"Option Value 1",
		"Enabled " + location,
		"Current Quantity " + location,
		"New Quantity " + location,
		"Stock Alert Enabled " + location,
		"Stock Alert Count " + location,
		"Price " + location,
	}
}

// Write renders one catalog row per record that resolved a title; records
// without a title have no sellable item and are skipped.
func Write(w io.Writer, books []*models.BookRecord, opts Options) error {
	columns := Columns(opts.Location)
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col] = i
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}

	for _, book := range books {
		if !book.HasTitle() {
			continue
		}
		row := make([]string, len(columns))
		row[index["Item Name"]] = book.DisplayName()
		row[index["Variation Name"]] = "Regular"
		row[index["SKU"]] = book.ISBN
		row[index["Description"]] = book.Description
		row[index["Categories"]] = "Books"
		row[index["Reporting Category"]] = "Books"
		row[index["GTIN"]] = book.ISBN
		row[index["Square Online Item Visibility"]] = "visible"
		row[index["Item Type"]] = "Physical good"
		row[index["Shipping Enabled"]] = "Y"
		row[index["Pickup Enabled"]] = "Y"
		row[index["Enabled "+opts.Location]] = "Y"
		if book.Price != "" {
			row[index["Price"]] = book.Price
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Bytes renders the catalog in memory, for HTTP downloads.
func Bytes(books []*models.BookRecord, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, books, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
