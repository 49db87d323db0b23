package extract

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/propertyhub/lease-planner/internal/scrape"
	"github.com/propertyhub/lease-planner/internal/scrape/backend"
)

var (
	// ErrNoRows means the invoice row selector matched nothing.
	ErrNoRows = errors.New("no invoice rows matched")
	// ErrMalformedRow wraps a row whose amount or date cannot be read.
	ErrMalformedRow = errors.New("malformed invoice row")
)

// Reason maps an extraction error to a job failure reason.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNoRows):
		return scrape.ReasonSelectorNotFound
	default:
		return scrape.ReasonExtractionFailed
	}
}

// Invoices reads records from the rows matched by the provider's row selector.
// Each match holds the outer HTML of one row.
func Invoices(cfg scrape.ProviderSelectorConfig, rows []backend.Match) ([]scrape.InvoiceRecord, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRows, cfg.InvoiceRowSelector)
	}

	records := make([]scrape.InvoiceRecord, 0, len(rows))
	for i, row := range rows {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(wrapRow(row.HTML)))
		if err != nil {
			return nil, fmt.Errorf("%w %d: %v", ErrMalformedRow, i, err)
		}
		record, ok, err := rowToRecord(cfg, doc.Selection)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %v", ErrMalformedRow, i, err)
		}
		if ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// FromHTML reads records from a whole invoices page.
func FromHTML(cfg scrape.ProviderSelectorConfig, page io.Reader) ([]scrape.InvoiceRecord, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return nil, err
	}

	rows := doc.Find(cfg.InvoiceRowSelector)
	if rows.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRows, cfg.InvoiceRowSelector)
	}

	records := make([]scrape.InvoiceRecord, 0, rows.Length())
	var rowErr error
	rows.EachWithBreak(func(i int, s *goquery.Selection) bool {
		record, ok, err := rowToRecord(cfg, s)
		if err != nil {
			rowErr = fmt.Errorf("%w %d: %v", ErrMalformedRow, i, err)
			return false
		}
		if ok {
			records = append(records, record)
		}
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return records, nil
}

// rowToRecord returns false for rows without an invoice number, such as
// headers or "no invoices" placeholders.
func rowToRecord(cfg scrape.ProviderSelectorConfig, row *goquery.Selection) (scrape.InvoiceRecord, bool, error) {
	number := cleanText(row.Find(cfg.NumberSelector).First().Text())
	if number == "" {
		return scrape.InvoiceRecord{}, false, nil
	}

	amount, err := ParseAmount(row.Find(cfg.AmountSelector).First().Text())
	if err != nil {
		return scrape.InvoiceRecord{}, false, fmt.Errorf("invoice %s: %w", number, err)
	}

	date, err := time.Parse(cfg.DateLayout, cleanText(row.Find(cfg.DateSelector).First().Text()))
	if err != nil {
		return scrape.InvoiceRecord{}, false, fmt.Errorf("invoice %s: %w", number, err)
	}

	record := scrape.InvoiceRecord{
		Number:   number,
		Amount:   amount,
		Currency: cfg.Currency,
		Date:     date,
	}
	if href, ok := row.Find(cfg.DownloadSelector).First().Attr("href"); ok {
		record.DownloadRef = resolve(cfg.InvoicesPage, href)
	}
	return record, true, nil
}

// wrapRow keeps table row fragments inside a table, otherwise the HTML parser drops them.
func wrapRow(html string) string {
	trimmed := strings.ToLower(strings.TrimSpace(html))
	if strings.HasPrefix(trimmed, "<tr") {
		return "<table><tbody>" + html + "</tbody></table>"
	}
	return html
}

func resolve(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
