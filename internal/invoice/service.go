package invoice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/zombor/factura-export/internal/source"
)

// ErrNoRecords is returned when an export is requested for an empty batch
var ErrNoRecords = errors.New("no records to export")

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles invoice extraction and export
type Service struct {
	mail       source.MailFetcher
	extractor  *Extractor
	timeSource TimeSource
	workers    int
}

// NewService creates a new Service with the default time source
func NewService(mail source.MailFetcher, extractor *Extractor, workers int) *Service {
	return &Service{
		mail:       mail,
		extractor:  extractor,
		timeSource: &defaultTimeSource{},
		workers:    workers,
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(mail source.MailFetcher, extractor *Extractor, timeSrc TimeSource, workers int) *Service {
	return &Service{
		mail:       mail,
		extractor:  extractor,
		timeSource: timeSrc,
		workers:    workers,
	}
}

// ProcessDocuments extracts a batch of already-loaded documents
func (s *Service) ProcessDocuments(ctx context.Context, docs []source.Document) *Batch {
	return ProcessBatch(ctx, s.extractor, docs, s.workers)
}

// ImportMail fetches the XML attachments matching filter and extracts them.
// A zero month means the current month.
func (s *Service) ImportMail(ctx context.Context, token string, filter source.Filter) (*Batch, error) {
	if s.mail == nil {
		return nil, fmt.Errorf("mail import is not configured")
	}
	if token == "" {
		return nil, fmt.Errorf("access token is required")
	}
	if filter.Month.IsZero() {
		filter.Month = s.timeSource.Now()
	}

	docs, err := s.mail.Fetch(ctx, token, filter)
	if err != nil {
		return nil, fmt.Errorf("fetching mail attachments: %w", err)
	}

	return s.ProcessDocuments(ctx, docs), nil
}

// Export writes records in the given format. Exporting nothing is refused.
func (s *Service) Export(w io.Writer, records []*Record, format Format) error {
	if len(records) == 0 {
		return ErrNoRecords
	}
	if err := Export(w, records, format); err != nil {
		return fmt.Errorf("exporting records: %w", err)
	}
	return nil
}
