package mbox

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-mbox"

	"github.com/ArionMiles/billscan/pkg/api"
)

const plainMessage = `From: scanner@example.com
To: bills@example.com
Subject: EDF
Message-Id: <edf-0305@example.com>
Content-Type: text/plain; charset=utf-8

EDF
Date : 05/03/2026
SOLDE A PAYER 12,00 €
45,50 €
`

const multipartMessage = `From: scanner@example.com
To: bills@example.com
Subject: Boulangerie
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: text/html; charset=utf-8

<p>scan attached</p>
--outer
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: base64

Qm91bGFuZ2VyaWUgTWFydGluCkxlIDEyLzAyLzIwMjYKVG90YWwgVFRDIDEyLDMwIOKCrAo=
--outer--
`

const htmlMessage = `From: scanner@example.com
Subject: html only
Content-Type: text/html; charset=utf-8

<html><body><p>Leclerc</p><p>Le 01/03/2026</p><p>Total TTC 9,99 &euro;</p></body></html>
`

const attachmentMessage = `From: scanner@example.com
Subject: photo
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b"

--b
Content-Type: image/jpeg
Content-Transfer-Encoding: base64

/9j/4AAQ
--b--
`

func writeArchive(t *testing.T, messages ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scans.mbox")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating mbox: %v", err)
	}
	defer f.Close()

	w := mbox.NewWriter(f)
	date := time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC)
	for _, msg := range messages {
		mw, err := w.CreateMessage("scanner@example.com", date)
		if err != nil {
			t.Fatalf("creating message: %v", err)
		}
		if _, err := io.WriteString(mw, msg); err != nil {
			t.Fatalf("writing message: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing mbox: %v", err)
	}
	return path
}

func readAll(t *testing.T, r *Reader) []*api.Bill {
	t.Helper()

	out := make(chan *api.Bill, 10)
	ackChan := make(chan string, 10)
	errCh := make(chan error, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() { errCh <- r.Read(ctx, out, ackChan) }()

	var bills []*api.Bill
	for bill := range out {
		bills = append(bills, bill)
		ackChan <- bill.SourceRef
	}
	close(ackChan)

	if err := <-errCh; err != nil {
		t.Fatalf("Read: %v", err)
	}
	return bills
}

func TestRead(t *testing.T) {
	path := writeArchive(t, plainMessage, htmlMessage, attachmentMessage, multipartMessage)

	r, err := New(Config{Path: path, Categories: api.Categories{"edf": "Energie"}}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	bills := readAll(t, r)
	if len(bills) != 3 {
		t.Fatalf("bills: got %d, want 3", len(bills))
	}

	edf := bills[0]
	if edf.SourceRef != "edf-0305@example.com" {
		t.Errorf("source ref: got %q, want %q", edf.SourceRef, "edf-0305@example.com")
	}
	if edf.AmountString() != "45.50" || edf.DateString() != "2026-03-05" {
		t.Errorf("edf: got amount %q date %q", edf.AmountString(), edf.DateString())
	}
	if edf.Category != "Energie" {
		t.Errorf("category: got %q, want %q", edf.Category, "Energie")
	}
	if edf.Source != SourceName {
		t.Errorf("source: got %q, want %q", edf.Source, SourceName)
	}

	leclerc := bills[1]
	if want := path + "#2"; leclerc.SourceRef != want {
		t.Errorf("source ref: got %q, want %q", leclerc.SourceRef, want)
	}
	if leclerc.Provider != "Leclerc" || leclerc.AmountString() != "9.99" || leclerc.DateString() != "2026-03-01" {
		t.Errorf("html bill: got provider %q amount %q date %q", leclerc.Provider, leclerc.AmountString(), leclerc.DateString())
	}

	bakery := bills[2]
	if want := path + "#4"; bakery.SourceRef != want {
		t.Errorf("source ref: got %q, want %q", bakery.SourceRef, want)
	}
	if bakery.Provider != "Boulangerie Martin" {
		t.Errorf("provider: got %q, want %q", bakery.Provider, "Boulangerie Martin")
	}
	if bakery.AmountString() != "12.30" || bakery.DateString() != "2026-02-12" {
		t.Errorf("bakery: got amount %q date %q", bakery.AmountString(), bakery.DateString())
	}
}

func TestReadMissingFile(t *testing.T) {
	r, err := New(Config{Path: filepath.Join(t.TempDir(), "missing.mbox")}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out := make(chan *api.Bill)
	if err := r.Read(context.Background(), out, make(chan string)); err == nil {
		t.Error("Read: got nil error, want error for missing file")
	}
	if _, ok := <-out; ok {
		t.Error("out: got open channel, want closed")
	}
}

func TestPlainTextPlainBody(t *testing.T) {
	r, _ := New(Config{Path: "unused"}, nil)
	bill, err := r.processMessage(strings.NewReader("Subject: x\n\nLeclerc\n9,99 €\n"), 1)
	if err != nil {
		t.Fatalf("processMessage: %v", err)
	}
	if bill.Provider != "Leclerc" || bill.AmountString() != "9.99" {
		t.Errorf("bill: got provider %q amount %q", bill.Provider, bill.AmountString())
	}
	if bill.SourceRef != "unused#1" {
		t.Errorf("source ref: got %q, want %q", bill.SourceRef, "unused#1")
	}
}

func TestPlainTextPrefersPlainOverHTML(t *testing.T) {
	const body = "--x\r\nContent-Type: text/html\r\n\r\n<p>from html</p>\r\n" +
		"--x\r\nContent-Type: text/plain\r\n\r\nfrom plain\r\n--x--\r\n"

	got, err := plainText(strings.NewReader(body), `multipart/alternative; boundary="x"`, "")
	if err != nil {
		t.Fatalf("plainText: %v", err)
	}
	if got != "from plain" {
		t.Errorf("got %q, want %q", got, "from plain")
	}
}

func TestPlainTextNoText(t *testing.T) {
	_, err := plainText(strings.NewReader("%PDF-1.4"), "application/pdf", "")
	if !errors.Is(err, errNoText) {
		t.Errorf("got %v, want errNoText", err)
	}
}
