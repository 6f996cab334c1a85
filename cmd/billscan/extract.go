package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/peterbourgon/ff/v4"

	"github.com/ArionMiles/billscan/pkg/api"
	"github.com/ArionMiles/billscan/pkg/extract"
)

func newExtractCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("extract").SetParent(parent)
	locale := fs.StringLong("locale", "fr", "invoice vocabulary")
	asJSON := fs.BoolLong("json", "print one JSON object per file")

	return &ff.Command{
		Name:      "extract",
		Usage:     "billscan extract [--locale fr] [--json] FILE... (use - for stdin)",
		ShortHelp: "extract amount, date, provider and title from OCR text files",
		Flags:     fs,
		Exec: func(_ context.Context, args []string) error {
			return runExtract(os.Stdout, os.Stdin, *locale, *asJSON, args)
		},
	}
}

// extraction is the printed form of one file's result.
type extraction struct {
	File string `json:"file"`
	api.Result
}

// MarshalJSON adds the file name to the result's own encoding, which the
// embedded Result would otherwise take over.
func (e extraction) MarshalJSON() ([]byte, error) {
	res, err := json.Marshal(e.Result)
	if err != nil {
		return nil, err
	}
	file, err := json.Marshal(e.File)
	if err != nil {
		return nil, err
	}
	out := append([]byte(`{"file":`), file...)
	if len(res) > 2 {
		out = append(out, ',')
	}
	return append(out, res[1:]...), nil
}

func runExtract(out io.Writer, stdin io.Reader, locale string, asJSON bool, files []string) error {
	if len(files) == 0 {
		return errors.New("no input files, pass - to read stdin")
	}

	extractor, err := extract.ForLocale(locale)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	for _, name := range files {
		text, err := readInput(name, stdin)
		if err != nil {
			return err
		}

		res := extraction{File: name, Result: extractor.ExtractText(text)}
		if asJSON {
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("encoding result for %s: %w", name, err)
			}
			continue
		}
		printExtraction(out, res)
	}
	return nil
}

func readInput(name string, stdin io.Reader) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return string(data), nil
}

func printExtraction(out io.Writer, res extraction) {
	amount := "-"
	if res.Amount.Valid {
		amount = fmt.Sprintf("%s (%s)", res.Amount.Decimal.StringFixed(2), res.AmountStrategy)
	}
	date := "-"
	if res.Date != nil {
		date = res.Date.Format(time.DateOnly)
	}
	provider := res.Provider
	if provider == "" {
		provider = "-"
	}

	fmt.Fprintf(out, "%s\n", res.File)
	fmt.Fprintf(out, "  title:    %s\n", res.Title)
	fmt.Fprintf(out, "  provider: %s\n", provider)
	fmt.Fprintf(out, "  amount:   %s\n", amount)
	fmt.Fprintf(out, "  date:     %s\n", date)
}
