package backend

import "github.com/propertyhub/lease-planner/internal/scrape"

// Request is the payload of POST /scrape on the automation backend.
type Request struct {
	URL      string    `json:"url"`
	Login    *Login    `json:"login,omitempty"`
	GotoURL  string    `json:"gotoUrl,omitempty"`
	Elements []Element `json:"elements"`
	Cookies  []Cookie  `json:"cookies,omitempty"`
}

// Login describes the form the backend fills before navigating to GotoURL.
type Login struct {
	UsernameSelector string `json:"usernameSelector"`
	PasswordSelector string `json:"passwordSelector"`
	SubmitSelector   string `json:"submitSelector"`
	Username         string `json:"username"`
	Password         string `json:"password"`
}

type Element struct {
	Selector string `json:"selector"`
}

type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
}

type Response struct {
	Data []ElementResult `json:"data"`
}

type ElementResult struct {
	Selector string  `json:"selector"`
	Results  []Match `json:"results"`
}

// Match is one DOM node matched by a selector.
type Match struct {
	HTML       string      `json:"html"`
	Text       string      `json:"text"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Results returns the matches of selector, or nil when the backend matched nothing.
func (r *Response) Results(selector string) []Match {
	for _, d := range r.Data {
		if d.Selector == selector {
			return d.Results
		}
	}
	return nil
}

// NewInvoiceRequest logs in with creds and reads every invoice row of the provider portal.
func NewInvoiceRequest(cfg scrape.ProviderSelectorConfig, creds scrape.Credentials) Request {
	return Request{
		URL: cfg.LoginPage,
		Login: &Login{
			UsernameSelector: cfg.UsernameSelector,
			PasswordSelector: cfg.PasswordSelector,
			SubmitSelector:   cfg.SubmitSelector,
			Username:         creds.Username,
			Password:         creds.Password,
		},
		GotoURL:  cfg.InvoicesPage,
		Elements: []Element{{Selector: cfg.InvoiceRowSelector}},
	}
}
