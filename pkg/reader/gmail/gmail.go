// Package gmail implements a Reader that extracts bills from OCR text mailed to a Gmail inbox.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/ArionMiles/billscan/pkg/api"
	"github.com/ArionMiles/billscan/pkg/extract"
	"github.com/ArionMiles/billscan/pkg/logging"
	"github.com/ArionMiles/billscan/pkg/reader/htmltext"
)

// SourceName tags bills produced by this reader.
const SourceName = "gmail"

// DefaultQuery selects unread mail that looks like a scanned bill.
const DefaultQuery = "is:unread subject:(facture OR ticket OR recu)"

const user = "me"

// Reader polls Gmail for messages whose body is OCR text.
type Reader struct {
	client     *gmail.Service
	query      string
	interval   time.Duration
	categories api.Categories
	extractor  *extract.Extractor
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

// Config holds configuration for the Gmail reader.
type Config struct {
	// Query is a Gmail search query. Defaults to DefaultQuery.
	Query string
	// Interval between searches. Defaults to 10 seconds.
	Interval time.Duration
	// Categories maps providers to categories.
	Categories api.Categories
	// Extractor defaults to extract.New().
	Extractor *extract.Extractor
}

// New creates a new Gmail reader. Extra options are passed to the Gmail
// service after the HTTP client.
func New(httpClient *http.Client, cfg Config, logger *slog.Logger, opts ...option.ClientOption) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	client, err := gmail.NewService(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}

	query := cfg.Query
	if query == "" {
		query = DefaultQuery
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = 10 * time.Second
	}
	extractor := cfg.Extractor
	if extractor == nil {
		extractor = extract.New()
	}

	return &Reader{
		client:     client,
		query:      query,
		interval:   interval,
		categories: cfg.Categories,
		extractor:  extractor,
		logger:     logger,
		pending:    make(map[string]struct{}),
	}, nil
}

// Read searches Gmail on every tick and sends one bill per new message.
// It runs until the context is canceled.
// Messages are only marked as read after receiving acknowledgment via ackChan.
func (r *Reader) Read(ctx context.Context, out chan<- *api.Bill, ackChan <-chan string) error {
	defer close(out)

	go r.handleAcknowledgments(ctx, ackChan)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Run immediately on start
	r.search(ctx, out)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("gmail reader stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			r.search(ctx, out)
		}
	}
}

// handleAcknowledgments marks messages as read when their bills are stored.
func (r *Reader) handleAcknowledgments(ctx context.Context, ackChan <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case msgID, ok := <-ackChan:
			if !ok {
				r.logger.Info("acknowledgment channel closed")
				return
			}
			r.markAsRead(ctx, msgID)
		}
	}
}

// markAsRead marks a message as read in Gmail.
// A message that stays unread is emitted again on the next search.
func (r *Reader) markAsRead(ctx context.Context, msgID string) {
	defer r.release(msgID)

	_, err := r.client.Users.Messages.Modify(user, msgID, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		r.logger.Warn("failed to mark message as read", "message_id", msgID, "error", err)
		return
	}
	r.logger.Debug("marked message as read", "message_id", msgID)
}

func (r *Reader) search(ctx context.Context, out chan<- *api.Bill) {
	var ids []string
	err := r.client.Users.Messages.List(user).Q(r.query).Context(ctx).Pages(ctx, func(resp *gmail.ListMessagesResponse) error {
		for _, msg := range resp.Messages {
			ids = append(ids, msg.Id)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Error("failed to list messages", "query", r.query, "error", err)
		}
		return
	}

	r.logger.Info("found messages", "count", len(ids))

	for _, id := range ids {
		if !r.claim(id) {
			continue
		}
		if err := r.processMessage(ctx, id, out); err != nil {
			r.release(id)
			if errors.Is(err, context.Canceled) {
				return
			}
			r.logger.Error("failed to process message", "message_id", id, "error", err)
		}
	}
}

func (r *Reader) processMessage(ctx context.Context, msgID string, out chan<- *api.Bill) error {
	msg, err := r.client.Users.Messages.Get(user, msgID).Format("full").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("getting message: %w", err)
	}
	if msg.Payload == nil {
		return errors.New("message has no payload")
	}

	text := plainText(msg.Payload)
	if strings.TrimSpace(text) == "" {
		if text, err = htmlText(msg.Payload); err != nil {
			return err
		}
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no text body (subject %q)", header(msg.Payload, "Subject"))
	}

	res := r.extractor.ExtractText(text)
	bill := api.NewBill(res, SourceName, msgID, r.categories)

	r.logger.Debug("extracted bill", logging.Bill(bill))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- bill:
	}
	return nil
}

// plainText returns the first text/plain body found depth-first.
func plainText(part *gmail.MessagePart) string {
	if strings.HasPrefix(part.MimeType, "text/plain") && part.Body != nil && part.Body.Data != "" {
		if data, err := decodeBody(part.Body.Data); err == nil {
			return string(data)
		}
	}
	for _, child := range part.Parts {
		if text := plainText(child); text != "" {
			return text
		}
	}
	return ""
}

// htmlText renders the first text/html body found depth-first.
func htmlText(part *gmail.MessagePart) (string, error) {
	if strings.HasPrefix(part.MimeType, "text/html") && part.Body != nil && part.Body.Data != "" {
		data, err := decodeBody(part.Body.Data)
		if err != nil {
			return "", fmt.Errorf("decoding html body: %w", err)
		}
		return htmltext.Text(bytes.NewReader(data))
	}
	for _, child := range part.Parts {
		text, err := htmlText(child)
		if err != nil || text != "" {
			return text, err
		}
	}
	return "", nil
}

// decodeBody accepts padded and unpadded URL-safe base64.
func decodeBody(data string) ([]byte, error) {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return decoded, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}

func header(part *gmail.MessagePart, name string) string {
	for _, h := range part.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func (r *Reader) claim(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.pending[id]; busy {
		return false
	}
	r.pending[id] = struct{}{}
	return true
}

func (r *Reader) release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, id)
}
