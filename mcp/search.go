package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	jsonutil "github.com/richinex/reflexion/internal/json"
	"github.com/richinex/reflexion/search"
)

// SearchProvider backs search.Provider with a web search tool on an MCP
// server. Calls are serialized over the server's stdio pipe.
type SearchProvider struct {
	client *Client
	tool   string
}

var _ search.Provider = (*SearchProvider)(nil)

// NewSearchProvider starts server and binds its search tool. An empty tool
// name selects the first tool whose name mentions "search".
func NewSearchProvider(ctx context.Context, server ServerConfig, tool string) (*SearchProvider, error) {
	client, err := NewClient(ctx, server)
	if err != nil {
		return nil, err
	}

	tools, err := client.ListTools(ctx)
	if err != nil {
		client.Close()
		return nil, err
	}
	name, err := pickTool(tools, tool)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &SearchProvider{client: client, tool: name}, nil
}

func pickTool(tools []ToolInfo, want string) (string, error) {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
		if want != "" && t.Name == want {
			return want, nil
		}
	}
	if want == "" {
		for _, n := range names {
			if strings.Contains(strings.ToLower(n), "search") {
				return n, nil
			}
		}
		return "", fmt.Errorf("MCP server has no search tool, available: %v", names)
	}
	return "", fmt.Errorf("MCP tool %q not found, available: %v", want, names)
}

// Name returns the backend name.
func (p *SearchProvider) Name() string {
	return "mcp:" + p.tool
}

// Search calls the bound tool with the query and parses its text output.
func (p *SearchProvider) Search(ctx context.Context, query string, opts search.Options) ([]search.Result, error) {
	count := opts.Count
	if count <= 0 {
		count = search.DefaultRawResults
	}

	out, err := p.client.CallTool(ctx, p.tool, map[string]interface{}{
		"query": query,
		"count": count,
	})
	if err != nil {
		return nil, err
	}
	return parseResults(out.Text(), count), nil
}

// Close stops the MCP server.
func (p *SearchProvider) Close() error {
	return p.client.Close()
}

type jsonHit struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Description string `json:"description"`
	Snippet     string `json:"snippet"`
}

// parseResults reads tool output as a JSON array of hits, an object with a
// "results" array, or Title:/URL:/Description: text blocks. Hits without a
// URL are dropped.
func parseResults(text string, limit int) []search.Result {
	text = strings.TrimSpace(text)

	var hits []jsonHit
	switch {
	case strings.HasPrefix(text, "["):
		_ = json.Unmarshal([]byte(text), &hits)
	case strings.Contains(text, "{"):
		if wrapped, err := jsonutil.ExtractJSONFromResponse[struct {
			Results []jsonHit `json:"results"`
		}](text); err == nil {
			hits = wrapped.Results
		}
	}

	var results []search.Result
	if hits != nil {
		for _, h := range hits {
			snippet := h.Description
			if snippet == "" {
				snippet = h.Snippet
			}
			results = append(results, search.Result{
				Title:   h.Title,
				URL:     strings.TrimSpace(h.URL),
				Content: h.Content,
				Snippet: snippet,
			})
		}
	} else {
		results = parseBlocks(text)
	}

	kept := make([]search.Result, 0, len(results))
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		kept = append(kept, r)
		if len(kept) == limit {
			break
		}
	}
	return kept
}

// parseBlocks reads the plain text layout used by the reference MCP search
// servers. Unprefixed lines continue the description.
func parseBlocks(text string) []search.Result {
	var results []search.Result
	var cur *search.Result
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Title:"):
			results = append(results, search.Result{Title: strings.TrimSpace(strings.TrimPrefix(line, "Title:"))})
			cur = &results[len(results)-1]
		case cur == nil || line == "":
		case strings.HasPrefix(line, "URL:"):
			cur.URL = strings.TrimSpace(strings.TrimPrefix(line, "URL:"))
		case strings.HasPrefix(line, "Description:"):
			cur.Snippet = strings.TrimSpace(strings.TrimPrefix(line, "Description:"))
		default:
			cur.Snippet = strings.TrimSpace(cur.Snippet + " " + line)
		}
	}
	return results
}
