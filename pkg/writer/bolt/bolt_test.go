package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/ArionMiles/billscan/pkg/api"
)

func newBill(id, ref, provider, amount string) *api.Bill {
	date := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)
	return &api.Bill{
		ID:        id,
		Provider:  provider,
		Title:     "Facture " + provider,
		Amount:    decimal.NewNullDecimal(decimal.RequireFromString(amount)),
		Date:      &date,
		Source:    "inbox",
		SourceRef: ref,
	}
}

var _ = Describe("Writer", func() {
	var dbPath string

	// write runs a writer over bills and returns the acknowledged refs.
	write := func(bills ...*api.Bill) []string {
		w, err := New(Config{Path: dbPath, BatchSize: 2}, nil)
		Expect(err).NotTo(HaveOccurred())

		in := make(chan *api.Bill, len(bills))
		ackChan := make(chan string, len(bills))
		for _, b := range bills {
			in <- b
		}
		close(in)

		Expect(w.Write(context.Background(), in, ackChan)).To(Succeed())
		close(ackChan)

		var acks []string
		for ref := range ackChan {
			acks = append(acks, ref)
		}
		return acks
	}

	open := func() *Writer {
		w, err := New(Config{Path: dbPath}, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(w.Close)
		return w
	}

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "bills.db")
	})

	When("bills are written", func() {
		var acks []string

		BeforeEach(func() {
			acks = write(
				newBill("a", "/inbox/edf.txt", "EDF", "45.50"),
				newBill("b", "/inbox/sncf.txt", "SNCF", "79.00"),
				newBill("c", "/inbox/leclerc.txt", "Leclerc", "12.30"),
			)
		})

		It("should acknowledge every bill", func() {
			Expect(acks).To(ConsistOf("/inbox/edf.txt", "/inbox/sncf.txt", "/inbox/leclerc.txt"))
		})

		It("should store them by ID", func() {
			w := open()
			bill, err := w.Get("a")
			Expect(err).NotTo(HaveOccurred())
			Expect(bill.Provider).To(Equal("EDF"))
			Expect(bill.AmountString()).To(Equal("45.50"))
			Expect(bill.DateString()).To(Equal("2026-03-05"))

			bills, err := w.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(bills).To(HaveLen(3))
		})
	})

	When("the same source is written twice", func() {
		BeforeEach(func() {
			write(newBill("first", "/inbox/edf.txt", "EDF", "45.50"))
			write(newBill("second", "/inbox/edf.txt", "EDF", "46.00"))
		})

		It("should replace the earlier record and keep its ID", func() {
			w := open()
			bills, err := w.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(bills).To(HaveLen(1))
			Expect(bills[0].ID).To(Equal("first"))
			Expect(bills[0].AmountString()).To(Equal("46.00"))
		})
	})

	When("the bill does not exist", func() {
		It("should return ErrNotFound", func() {
			w := open()
			_, err := w.Get("missing")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})
	})

	When("no path is configured", func() {
		It("should fail", func() {
			_, err := New(Config{}, nil)
			Expect(err).To(HaveOccurred())
		})
	})
})
