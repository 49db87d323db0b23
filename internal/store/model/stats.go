package model

type Stats struct {
	// ContractsByStatus counts contracts per lifecycle status.
	ContractsByStatus map[string]int
	// ScrapeJobsByStatus counts scrape jobs per status.
	ScrapeJobsByStatus map[string]int
	// TotalOrganizations is the number of distinct organizations owning a contract.
	TotalOrganizations int
	TotalInvoices      int
}

type StatusCount struct {
	Status string
	Total  int
}

func NewStats(contracts, jobs []StatusCount, organizations, invoices int) Stats {
	stats := Stats{
		ContractsByStatus:  make(map[string]int, len(contracts)),
		ScrapeJobsByStatus: make(map[string]int, len(jobs)),
		TotalOrganizations: organizations,
		TotalInvoices:      invoices,
	}
	for _, c := range contracts {
		stats.ContractsByStatus[c.Status] += c.Total
	}
	for _, j := range jobs {
		stats.ScrapeJobsByStatus[j.Status] += j.Total
	}
	return stats
}
