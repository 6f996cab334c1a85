package gmail

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/ArionMiles/billscan/pkg/api"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

// fakeGmail serves the subset of the Gmail API the reader calls.
type fakeGmail struct {
	mu       sync.Mutex
	query    string
	messages map[string]string
	read     []string
}

func (f *fakeGmail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	const prefix = "/gmail/v1/users/me/messages"
	path := r.URL.Path

	switch {
	case r.Method == http.MethodGet && path == prefix:
		f.query = r.URL.Query().Get("q")
		_, _ = io.WriteString(w, `{"messages":[{"id":"m1"},{"id":"m2"}]}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/modify"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, prefix+"/"), "/modify")
		f.read = append(f.read, id)
		_, _ = io.WriteString(w, `{"id":"`+id+`"}`)
	case r.Method == http.MethodGet && strings.HasPrefix(path, prefix+"/"):
		id := strings.TrimPrefix(path, prefix+"/")
		body, ok := f.messages[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":404,"message":"not found"}}`)
			return
		}
		_, _ = io.WriteString(w, body)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"unexpected `+r.Method+` `+path+`"}}`)
	}
}

func (f *fakeGmail) readIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.read...)
}

func TestReadEmitsBillsAndMarksAcknowledgedRead(t *testing.T) {
	fake := &fakeGmail{messages: map[string]string{
		// multipart/alternative with the OCR text in the plain part
		"m1": `{"id":"m1","payload":{"mimeType":"multipart/alternative","headers":[{"name":"Subject","value":"facture"}],"parts":[` +
			`{"mimeType":"text/html","body":{"data":"` + b64("<p>ignored</p>") + `"}},` +
			`{"mimeType":"text/plain","body":{"data":"` + b64("EDF\nDate : 05/03/2026\nSOLDE A PAYER 12,00 €\n45,50 €") + `"}}]}}`,
		// image only, skipped
		"m2": `{"id":"m2","payload":{"mimeType":"image/jpeg","body":{"attachmentId":"a1"}}}`,
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	r, err := New(srv.Client(), Config{
		Query:      "is:unread label:scans",
		Interval:   time.Hour,
		Categories: api.Categories{"EDF": "Energie"},
	}, nil, option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := make(chan *api.Bill, 10)
	ackChan := make(chan string, 10)
	done := make(chan error, 1)
	go func() { done <- r.Read(ctx, out, ackChan) }()

	var bill *api.Bill
	select {
	case bill = <-out:
	case <-ctx.Done():
		t.Fatal("no bill received")
	}

	if bill.SourceRef != "m1" || bill.Source != SourceName {
		t.Errorf("source: got %q/%q", bill.Source, bill.SourceRef)
	}
	if bill.Provider != "EDF" || bill.Category != "Energie" || bill.AmountString() != "45.50" {
		t.Errorf("bill: provider %q category %q amount %q", bill.Provider, bill.Category, bill.AmountString())
	}

	ackChan <- bill.SourceRef
	deadline := time.Now().Add(2 * time.Second)
	for len(fake.readIDs()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Read: got %v, want context.Canceled", err)
	}

	if got := fake.readIDs(); len(got) != 1 || got[0] != "m1" {
		t.Errorf("marked read: got %v, want [m1]", got)
	}
	fake.mu.Lock()
	query := fake.query
	fake.mu.Unlock()
	if query != "is:unread label:scans" {
		t.Errorf("query: got %q", query)
	}
	if _, open := <-out; open {
		t.Error("extra bill emitted for image-only message")
	}
}

func TestPlainTextNested(t *testing.T) {
	part := &gmailapi.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "image/jpeg", Body: &gmailapi.MessagePartBody{AttachmentId: "a1"}},
			{MimeType: "multipart/alternative", Parts: []*gmailapi.MessagePart{
				{MimeType: "text/plain; charset=UTF-8", Body: &gmailapi.MessagePartBody{
					Data: base64.RawURLEncoding.EncodeToString([]byte("Total\n9,99")),
				}},
			}},
		},
	}

	if got := plainText(part); got != "Total\n9,99" {
		t.Errorf("plain text: got %q", got)
	}
}

func TestClaimSkipsPendingMessages(t *testing.T) {
	r := &Reader{pending: make(map[string]struct{})}
	if !r.claim("m1") {
		t.Fatal("first claim refused")
	}
	if r.claim("m1") {
		t.Error("second claim of a pending message accepted")
	}
	r.release("m1")
	if !r.claim("m1") {
		t.Error("claim after release refused")
	}
}

func TestHTMLTextFallback(t *testing.T) {
	part := &gmailapi.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "text/html; charset=UTF-8", Body: &gmailapi.MessagePartBody{
				Data: b64("<div>Leclerc<br>Total TTC 9,99 &euro;</div>"),
			}},
		},
	}

	if got := plainText(part); got != "" {
		t.Fatalf("plain text: got %q, want none", got)
	}
	got, err := htmlText(part)
	if err != nil {
		t.Fatalf("htmlText: %v", err)
	}
	if got != "Leclerc\nTotal TTC 9,99 €" {
		t.Errorf("html text: got %q", got)
	}
}
