// file: internal/server/handlers.go
// version: 1.0.0
// guid: 11521193-efbd-4a65-b78f-df5bc37725c3

package server

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jdfalk/book-cataloger/internal/archive"
	"github.com/jdfalk/book-cataloger/internal/catalog"
	"github.com/jdfalk/book-cataloger/internal/models"
)

// maxBatchISBNs bounds one catalog request.
const maxBatchISBNs = 100

// descriptionCap truncates descriptions in the JSON response only; CSV
// export always carries the full text.
const descriptionCap = 200

type catalogRequest struct {
	ISBNs    []string `json:"isbns"`
	Location string   `json:"location"`
}

func (s *Server) createCatalog(c *gin.Context) {
	var req catalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body."})
		return
	}

	location := strings.TrimSpace(req.Location)
	if location == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Location name is required."})
		return
	}

	isbns := cleanISBNs(req.ISBNs)
	if len(isbns) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No valid ISBNs provided."})
		return
	}
	if len(isbns) > maxBatchISBNs {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Maximum 100 ISBNs per request."})
		return
	}

	// Reject before the provider work, not after.
	if s.sessions.Full() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Server is busy. Please try again in a few minutes."})
		return
	}

	books := s.fetcher.FetchAll(c.Request.Context(), isbns, nil)

	sess, ok := s.sessions.Add(books, location)
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Server is busy. Please try again in a few minutes."})
		return
	}

	found := 0
	images := 0
	for _, b := range books {
		if b.HasTitle() {
			found++
		}
		if b.HasImage() {
			images++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.ID,
		"summary": gin.H{
			"total":   len(isbns),
			"found":   found,
			"missing": len(isbns) - found,
			"images":  images,
		},
		"books": bookSummaries(books),
	})
}

// bookSummaries shapes records for the lookup response. Descriptions are
// capped so a hundred-book batch stays a reasonable payload.
func bookSummaries(books []*models.BookRecord) []gin.H {
	out := make([]gin.H, 0, len(books))
	for _, b := range books {
		out = append(out, gin.H{
			"isbn":         b.ISBN,
			"title":        b.Title,
			"author":       b.Author,
			"description":  truncate(b.Description, descriptionCap),
			"page_count":   b.PageCount,
			"price":        b.Price,
			"genres":       b.Genres,
			"image_url":    b.ImageURL,
			"image_source": b.ImageSource,
			"errors":       b.Errors,
		})
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

var isbnCleaner = strings.NewReplacer("-", "", " ", "")

// cleanISBNs trims, strips separators, drops anything not shaped like an
// ISBN-10 or ISBN-13, and deduplicates preserving submission order.
func cleanISBNs(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		cleaned := isbnCleaner.Replace(strings.TrimSpace(r))
		if cleaned == "" || !isbnShaped(cleaned) || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		out = append(out, cleaned)
	}
	return out
}

// isbnShaped accepts 13 digits, or 9 digits followed by a digit or X.
func isbnShaped(s string) bool {
	switch len(s) {
	case 13:
		return allDigits(s)
	case 10:
		if !allDigits(s[:9]) {
			return false
		}
		last := s[9]
		return last == 'X' || last == 'x' || (last >= '0' && last <= '9')
	default:
		return false
	}
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (s *Server) sessionFromPath(c *gin.Context) (*Session, bool) {
	sess, ok := s.sessions.Get(c.Param("session"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired."})
		return nil, false
	}
	return sess, true
}

func (s *Server) downloadCSV(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}

	data, err := catalog.Bytes(sess.Books, catalog.Options{Location: sess.Location})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build catalog."})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="catalog.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

func (s *Server) downloadImages(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := archive.WriteImageZip(&buf, sess.Books); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build image archive."})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="images.zip"`)
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

func (s *Server) downloadBundle(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := archive.WriteBundleZip(&buf, sess.Books, catalog.Options{Location: sess.Location}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build bundle."})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="cataloger.zip"`)
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}
