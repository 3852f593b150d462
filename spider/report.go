package spider

import (
	"encoding/json"
	"sort"
	"time"
)

// Report is the JSON summary of a finished (or cancelled) crawl run,
// consumed by the reporting/export shell.
type Report struct {
	RootURL     string       `json:"root_url"`
	MaxDepth    int          `json:"max_depth"`
	State       string       `json:"state"`
	GeneratedAt string       `json:"generated_at"`
	Pages       []PageResult `json:"pages"`
}

// Report builds a report from the current result snapshot. Pages are sorted
// by depth, then URL, for stable output.
func (s *Spider) Report() (Report, error) {
	pages, err := s.Results()
	if err != nil {
		return Report{}, err
	}

	sortPages(pages)

	return Report{
		RootURL:     s.base.String(),
		MaxDepth:    s.opts.MaxDepth,
		State:       s.ctrl.State().String(),
		GeneratedAt: s.clock.Now().UTC().Format(time.RFC3339),
		Pages:       pages,
	}, nil
}

// Marshal renders the report as JSON ending with a newline.
func (r Report) Marshal(indent bool) []byte {
	var (
		data []byte
		err  error
	)

	if indent {
		data, err = json.MarshalIndent(r, "", "  ")
	} else {
		data, err = json.Marshal(r)
	}

	if err != nil {
		data = []byte(`{"error":"failed to marshal report"}`)
	}

	return ensureNewline(data)
}

func ensureNewline(data []byte) []byte {
	if len(data) == 0 || data[len(data)-1] != '\n' {
		return append(data, '\n')
	}

	return data
}

func sortPages(pages []PageResult) {
	sort.SliceStable(pages, func(i, j int) bool {
		if pages[i].Depth != pages[j].Depth {
			return pages[i].Depth < pages[j].Depth
		}

		return pages[i].URL < pages[j].URL
	})
}
