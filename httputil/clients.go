package httputil

import (
	"net/http"
	"time"
)

// Clients separates the client used against listing sites from the one used
// against our own collaborators. Site fetches are short-fused and never
// follow redirects (a redirect off the search page means the results are
// gone); collaborator calls get a longer budget.
type Clients struct {
	Fetch *http.Client // listing sites, link checks
	API   *http.Client // index, insights, archive
}

func NewClients() *Clients {
	fetch := &http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &Clients{
		Fetch: fetch,
		API:   &http.Client{Timeout: 30 * time.Second},
	}
}
