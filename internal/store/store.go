package store

// Outcome classifies how a crawl task ended.
type Outcome string

const (
	// OutcomeReachable marks a fetched page that answered 2xx/3xx.
	OutcomeReachable Outcome = "reachable"
	// OutcomeBroken marks a fetched page that answered 4xx/5xx.
	OutcomeBroken Outcome = "broken"
	// OutcomeFetchError marks a page whose fetch failed on the network.
	OutcomeFetchError Outcome = "fetch_error"
	// OutcomeExternal marks an off-site URL that was recorded but never fetched.
	OutcomeExternal Outcome = "external"
	// OutcomeRobotsExcluded marks a URL denied by robots.txt, never fetched.
	OutcomeRobotsExcluded Outcome = "robots_excluded"
)

// PageResult is the immutable record of one completed crawl task.
type PageResult struct {
	URL           string   `json:"url"`
	Host          string   `json:"host"`
	Depth         int      `json:"depth"`
	Referrer      string   `json:"referrer,omitempty"`
	Outcome       Outcome  `json:"outcome"`
	HTTPStatus    int      `json:"http_status,omitempty"`
	FailureReason string   `json:"failure_reason,omitempty"`
	External      bool     `json:"external"`
	ResourceType  string   `json:"resource_type,omitempty"`
	Links         []string `json:"outbound_links,omitempty"`
	Timestamp     string   `json:"timestamp"`
}

// Store is the append-only sink for completed results. Append preserves
// insertion order; Snapshot returns a consistent point-in-time copy and is
// safe to call while appends continue.
type Store interface {
	Append(result PageResult) error
	Snapshot() ([]PageResult, error)
	Close() error
}
