package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	defaultMessageLimit = 50
	gmailUser           = "me"
)

// Gmail implements the MailFetcher interface using the Gmail API
type Gmail struct {
	messageLimit int64
	endpoint     string
	transport    http.RoundTripper
	timeout      time.Duration
}

// GmailOption configures a Gmail fetcher
type GmailOption func(*Gmail)

// WithMessageLimit caps how many messages are inspected per fetch
func WithMessageLimit(limit int) GmailOption {
	return func(g *Gmail) {
		if limit > 0 {
			g.messageLimit = int64(limit)
		}
	}
}

// WithEndpoint overrides the Gmail API base URL
func WithEndpoint(endpoint string) GmailOption {
	return func(g *Gmail) {
		g.endpoint = endpoint
	}
}

// WithTransport sets the base HTTP transport used under the bearer token
func WithTransport(transport http.RoundTripper) GmailOption {
	return func(g *Gmail) {
		g.transport = transport
	}
}

// NewGmail creates a new Gmail fetcher
func NewGmail(opts ...GmailOption) *Gmail {
	g := &Gmail{
		messageLimit: defaultMessageLimit,
		timeout:      30 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// newService builds a Gmail client that sends token as a bearer credential
func (g *Gmail) newService(ctx context.Context, token string) (*gmail.Service, error) {
	base := g.transport
	if base == nil {
		base = http.DefaultTransport
	}
	client := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   base,
		},
		Timeout: g.timeout,
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gmail client: %w", err)
	}
	return svc, nil
}

// Fetch searches the mailbox and returns every XML attachment of the matching messages
func (g *Gmail) Fetch(ctx context.Context, token string, filter Filter) ([]Document, error) {
	if token == "" {
		return nil, fmt.Errorf("gmail access token is required")
	}

	svc, err := g.newService(ctx, token)
	if err != nil {
		return nil, err
	}

	query := filter.Query()
	slog.Info("Searching Gmail for invoices", "query", query)

	list, err := svc.Users.Messages.List(gmailUser).Q(query).MaxResults(g.messageLimit).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing gmail messages: %w", err)
	}

	docs := make([]Document, 0)
	if len(list.Messages) == 0 || list.ResultSizeEstimate == 0 {
		return docs, nil
	}

	messages := list.Messages
	if int64(len(messages)) > g.messageLimit {
		messages = messages[:g.messageLimit]
	}
	slog.Info("Processing Gmail messages", "count", len(messages))

	for _, m := range messages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg, err := svc.Users.Messages.Get(gmailUser, m.Id).Context(ctx).Do()
		if err != nil {
			slog.Warn("Failed to get message", "message_id", m.Id, "error", err)
			continue
		}

		for _, part := range xmlAttachments(msg.Payload) {
			body, err := svc.Users.Messages.Attachments.Get(gmailUser, m.Id, part.Body.AttachmentId).Context(ctx).Do()
			if err != nil {
				slog.Warn("Failed to get attachment",
					"message_id", m.Id,
					"filename", part.Filename,
					"error", err,
				)
				continue
			}

			content, err := DecodeAttachment(body.Data)
			if err != nil {
				slog.Warn("Failed to decode attachment", "filename", part.Filename, "error", err)
				continue
			}

			docs = append(docs, Document{FileName: part.Filename, Content: content})
		}
	}

	return docs, nil
}

// xmlAttachments walks the MIME tree and returns the parts carrying an .xml attachment
func xmlAttachments(part *gmail.MessagePart) []*gmail.MessagePart {
	if part == nil {
		return nil
	}

	var found []*gmail.MessagePart
	if part.Filename != "" && strings.HasSuffix(strings.ToLower(part.Filename), ".xml") &&
		part.Body != nil && part.Body.AttachmentId != "" {
		found = append(found, part)
	}
	for _, child := range part.Parts {
		found = append(found, xmlAttachments(child)...)
	}
	return found
}
