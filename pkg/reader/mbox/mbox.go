// Package mbox implements a Reader that extracts bills from the messages of an mbox archive.
// Each message carries the OCR text of one invoice in its text/plain body,
// or failing that in an HTML body.
package mbox

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"strings"

	"github.com/emersion/go-mbox"

	"github.com/ArionMiles/billscan/pkg/api"
	"github.com/ArionMiles/billscan/pkg/extract"
	"github.com/ArionMiles/billscan/pkg/logging"
	"github.com/ArionMiles/billscan/pkg/reader/htmltext"
)

// SourceName identifies bills produced by this reader.
const SourceName = "mbox"

var errNoText = errors.New("no text body")

// Reader reads an mbox archive once and emits one bill per message.
type Reader struct {
	path       string
	categories api.Categories
	extractor  *extract.Extractor
	logger     *slog.Logger
}

// Config holds configuration for the mbox reader.
type Config struct {
	// Path of the mbox file.
	Path string
	// Categories maps providers to categories.
	Categories api.Categories
	// Extractor defaults to extract.New().
	Extractor *extract.Extractor
}

// New creates a new mbox reader.
func New(cfg Config, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		return nil, errors.New("mbox path is required")
	}

	extractor := cfg.Extractor
	if extractor == nil {
		extractor = extract.New()
	}

	return &Reader{
		path:       cfg.Path,
		categories: cfg.Categories,
		extractor:  extractor,
		logger:     logger,
	}, nil
}

// Read sends one bill per message, closes out, then waits for the writer to
// finish acknowledging before returning.
func (r *Reader) Read(ctx context.Context, out chan<- *api.Bill, ackChan <-chan string) error {
	err := r.readArchive(ctx, out)
	close(out)
	if err != nil {
		return err
	}

	var acked int
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ref, ok := <-ackChan:
			if !ok {
				r.logger.Info("mbox archive processed", "path", r.path, "acknowledged", acked)
				return nil
			}
			acked++
			r.logger.Debug("bill acknowledged", "source_ref", ref)
		}
	}
}

func (r *Reader) readArchive(ctx context.Context, out chan<- *api.Bill) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("opening mbox: %w", err)
	}
	defer f.Close()

	mr := mbox.NewReader(f)
	for n := 1; ; n++ {
		msg, err := mr.NextMessage()
		if errors.Is(err, io.EOF) {
			r.logger.Info("finished reading mbox", "path", r.path, "messages", n-1)
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading message %d: %w", n, err)
		}

		bill, err := r.processMessage(msg, n)
		if err != nil {
			r.logger.Warn("skipping message", "index", n, "error", err)
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- bill:
		}
	}
}

func (r *Reader) processMessage(raw io.Reader, n int) (*api.Bill, error) {
	msg, err := mail.ReadMessage(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing message: %w", err)
	}

	text, err := plainText(msg.Body, msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"))
	if err != nil {
		return nil, err
	}

	ref := strings.Trim(msg.Header.Get("Message-Id"), "<> ")
	if ref == "" {
		ref = fmt.Sprintf("%s#%d", r.path, n)
	}

	res := r.extractor.ExtractText(text)
	bill := api.NewBill(res, SourceName, ref, r.categories)

	r.logger.Debug("extracted bill", "subject", msg.Header.Get("Subject"), logging.Bill(bill))
	return bill, nil
}

// plainText returns the first text/plain body, descending into multipart
// containers. Without one, the first text/html body is rendered as text.
func plainText(body io.Reader, contentType, encoding string) (string, error) {
	var b bodies
	if err := b.collect(body, contentType, encoding); err != nil {
		return "", err
	}
	switch {
	case b.hasPlain:
		return b.plain, nil
	case b.hasHTML:
		return b.html, nil
	default:
		return "", errNoText
	}
}

type bodies struct {
	plain, html       string
	hasPlain, hasHTML bool
}

func (b *bodies) collect(body io.Reader, contentType, encoding string) error {
	mediaType := "text/plain"
	var params map[string]string
	if contentType != "" {
		var err error
		mediaType, params, err = mime.ParseMediaType(contentType)
		if err != nil {
			return fmt.Errorf("parsing content type: %w", err)
		}
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		mr := multipart.NewReader(body, params["boundary"])
		for !b.hasPlain {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading part: %w", err)
			}
			if err := b.collect(part, part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding")); err != nil {
				return err
			}
		}
	case mediaType == "text/plain":
		data, err := io.ReadAll(decode(body, encoding))
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}
		b.plain, b.hasPlain = string(data), true
	case mediaType == "text/html" && !b.hasHTML:
		text, err := htmltext.Text(decode(body, encoding))
		if err != nil {
			return err
		}
		b.html, b.hasHTML = text, true
	}
	return nil
}

func decode(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}
