package source

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Document is a raw invoice document as delivered by a source
type Document struct {
	FileName string `json:"file_name"`
	Content  string `json:"-"` // UTF-8 XML text
}

// MailFetcher defines the interface for fetching invoice attachments from a mailbox
type MailFetcher interface {
	// Fetch returns the XML attachments matching the filter, authenticated with token
	Fetch(ctx context.Context, token string, filter Filter) ([]Document, error)
}

// Filter narrows a mailbox search to one calendar month and, optionally, one sender
type Filter struct {
	Month   time.Time
	Company string
}

const monthLayout = "2006-01"

// ParseMonth parses a month in YYYY-MM form
func ParseMonth(s string) (time.Time, error) {
	m, err := time.Parse(monthLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing month %q: %w", s, err)
	}
	return m, nil
}

// Query builds the Gmail search expression for the filter.
// Gmail treats before: as exclusive, so the upper bound is the first day of the next month.
func (f Filter) Query() string {
	start := time.Date(f.Month.Year(), f.Month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	query := fmt.Sprintf("has:attachment filename:xml after:%s before:%s",
		start.Format("2006/01/02"), end.Format("2006/01/02"))
	if company := strings.TrimSpace(f.Company); company != "" {
		query += " from:" + company
	}
	return query
}

// DecodeAttachment decodes a base64url attachment body into text.
// Padding is optional and the standard alphabet is accepted as well.
func DecodeAttachment(data string) (string, error) {
	data = strings.TrimSpace(data)
	data = strings.NewReplacer("+", "-", "/", "_").Replace(data)
	data = strings.TrimRight(data, "=")

	decoded, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("decoding attachment: %w", err)
	}
	return string(decoded), nil
}
