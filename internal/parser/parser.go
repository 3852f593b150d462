package parser

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ResourceRef describes a non-page asset referenced by HTML.
type ResourceRef struct {
	URL  string
	Type string // "image", "script" or "style"
}

// Result aggregates everything extracted from one HTML document.
// Links and Resources both follow document order.
type Result struct {
	Links     []string
	Resources []ResourceRef
}

// Parse extracts anchor targets and resource references from an HTML body.
// The underlying parser repairs malformed markup, so a broken page yields
// whatever links are still recognizable rather than an error.
func Parse(body []byte) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}

	return Result{
		Links:     parseLinks(doc),
		Resources: parseResources(doc),
	}, nil
}

func parseLinks(doc *goquery.Document) []string {
	links := []string{}
	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		if hasNofollow(selection) {
			return
		}

		href, ok := selection.Attr("href")
		if !ok {
			return
		}

		trimmed := strings.TrimSpace(href)
		if trimmed == "" {
			return
		}

		links = append(links, trimmed)
	})

	return links
}

func hasNofollow(selection *goquery.Selection) bool {
	rel, ok := selection.Attr("rel")
	if !ok {
		return false
	}

	for _, value := range strings.Fields(strings.ToLower(rel)) {
		if value == "nofollow" {
			return true
		}
	}

	return false
}

func parseResources(doc *goquery.Document) []ResourceRef {
	resources := []ResourceRef{}
	resources = append(resources, resourcesBySelector(doc, "img[src]", "src", "image")...)
	resources = append(resources, resourcesBySelector(doc, "script[src]", "src", "script")...)
	resources = append(resources, parseStylesheets(doc)...)

	return resources
}

func resourcesBySelector(doc *goquery.Document, selector string, attr string, resourceType string) []ResourceRef {
	resources := []ResourceRef{}
	doc.Find(selector).Each(func(_ int, selection *goquery.Selection) {
		value, ok := selection.Attr(attr)
		if !ok {
			return
		}

		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return
		}

		resources = append(resources, ResourceRef{URL: trimmed, Type: resourceType})
	})

	return resources
}

func parseStylesheets(doc *goquery.Document) []ResourceRef {
	resources := []ResourceRef{}
	doc.Find("link[href]").Each(func(_ int, selection *goquery.Selection) {
		rel, ok := selection.Attr("rel")
		if !ok || !strings.Contains(strings.ToLower(rel), "stylesheet") {
			return
		}

		href, ok := selection.Attr("href")
		if !ok {
			return
		}

		trimmed := strings.TrimSpace(href)
		if trimmed == "" {
			return
		}

		resources = append(resources, ResourceRef{URL: trimmed, Type: "style"})
	})

	return resources
}
