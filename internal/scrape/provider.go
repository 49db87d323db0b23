package scrape

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ProviderIdentity names a utility provider portal.
type ProviderIdentity string

const ProviderEngieRomania ProviderIdentity = "ENGIE Romania"

// ProviderSelectorConfig holds the locators an automation backend needs to log
// in to a provider portal and read its invoice table. The cell selectors are
// relative to a single invoice row.
type ProviderSelectorConfig struct {
	Provider           ProviderIdentity `json:"provider"`
	LoginPage          string           `json:"loginPage"`
	InvoicesPage       string           `json:"invoicesPage"`
	UsernameSelector   string           `json:"usernameSelector"`
	PasswordSelector   string           `json:"passwordSelector"`
	SubmitSelector     string           `json:"submitSelector"`
	InvoiceRowSelector string           `json:"invoiceRowSelector"`
	NumberSelector     string           `json:"numberSelector"`
	AmountSelector     string           `json:"amountSelector"`
	DateSelector       string           `json:"dateSelector"`
	DownloadSelector   string           `json:"downloadSelector"`
	DateLayout         string           `json:"dateLayout"`
	Currency           string           `json:"currency"`
}

var engieRomania = ProviderSelectorConfig{
	Provider:           ProviderEngieRomania,
	LoginPage:          "https://my.engie.ro/autentificare",
	InvoicesPage:       "https://my.engie.ro/facturi/istoric",
	UsernameSelector:   "input#email",
	PasswordSelector:   "input#password",
	SubmitSelector:     "button[type='submit']",
	InvoiceRowSelector: "table.invoices-table tbody tr",
	NumberSelector:     "td.invoice-number",
	AmountSelector:     "td.invoice-amount",
	DateSelector:       "td.invoice-date",
	DownloadSelector:   "td.invoice-actions a[href]",
	DateLayout:         "02.01.2006",
	Currency:           "RON",
}

// Validate checks that LoginPage and InvoicesPage are absolute http(s) URLs and
// that no selector is blank.
func (c ProviderSelectorConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(string(c.Provider)) == "" {
		errs = append(errs, errors.New("provider identity is empty"))
	}
	for name, raw := range map[string]string{"loginPage": c.LoginPage, "invoicesPage": c.InvoicesPage} {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("%s %q is not an absolute http url", name, raw))
		}
	}
	for name, sel := range c.selectors() {
		if strings.TrimSpace(sel) == "" {
			errs = append(errs, fmt.Errorf("%s is empty", name))
		}
	}
	if c.DateLayout == "" || c.Currency == "" {
		errs = append(errs, errors.New("date layout and currency are required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w for %q: %w", ErrInvalidSelectors, c.Provider, errors.Join(errs...))
	}
	return nil
}

func (c ProviderSelectorConfig) selectors() map[string]string {
	return map[string]string{
		"usernameSelector":   c.UsernameSelector,
		"passwordSelector":   c.PasswordSelector,
		"submitSelector":     c.SubmitSelector,
		"invoiceRowSelector": c.InvoiceRowSelector,
		"numberSelector":     c.NumberSelector,
		"amountSelector":     c.AmountSelector,
		"dateSelector":       c.DateSelector,
		"downloadSelector":   c.DownloadSelector,
	}
}

// Registry is a read-only set of provider configurations.
type Registry struct {
	providers map[ProviderIdentity]ProviderSelectorConfig
}

var defaultRegistry = mustNewRegistry(engieRomania)

func NewRegistry(configs ...ProviderSelectorConfig) (*Registry, error) {
	r := &Registry{providers: make(map[ProviderIdentity]ProviderSelectorConfig, len(configs))}
	for _, c := range configs {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, ok := r.providers[c.Provider]; ok {
			return nil, fmt.Errorf("%w: %q registered twice", ErrInvalidSelectors, c.Provider)
		}
		r.providers[c.Provider] = c
	}
	return r, nil
}

func mustNewRegistry(configs ...ProviderSelectorConfig) *Registry {
	r, err := NewRegistry(configs...)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRegistry holds every provider supported out of the box.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// SelectorsFor looks provider up in the default registry.
func SelectorsFor(provider ProviderIdentity) (ProviderSelectorConfig, error) {
	return defaultRegistry.SelectorsFor(provider)
}

func (r *Registry) SelectorsFor(provider ProviderIdentity) (ProviderSelectorConfig, error) {
	c, ok := r.providers[provider]
	if !ok {
		return ProviderSelectorConfig{}, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	return c, nil
}

// Providers returns the registered identities sorted by name.
func (r *Registry) Providers() []ProviderIdentity {
	ids := make([]ProviderIdentity, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
