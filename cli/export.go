package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/richinex/reflexion/agent"
	"github.com/richinex/reflexion/model"
	"github.com/richinex/reflexion/storage"
)

// ExportMarkdown renders the final answer as a markdown document. The
// reference list is appended only when the answer does not already carry one.
func ExportMarkdown(res agent.Result) []byte {
	var b strings.Builder
	b.WriteString("# Final Answer\n\n")
	fmt.Fprintf(&b, "**Prompt:** %s\n\n", res.Question)
	if !res.HasAnswer() {
		b.WriteString("_No answer produced._\n")
		return []byte(b.String())
	}

	answer := res.AnswerText()
	b.WriteString(answer)
	b.WriteString("\n")
	if len(res.References) > 0 && !strings.Contains(answer, "References") {
		b.WriteString("\n## References\n\n")
		for i, ref := range res.References {
			fmt.Fprintf(&b, "%d. %s\n", i+1, ref)
		}
	}
	return []byte(b.String())
}

// runExport is the JSON export document.
type runExport struct {
	RunID         string              `json:"run_id"`
	Prompt        string              `json:"prompt"`
	Answer        *string             `json:"answer"`
	References    []string            `json:"references"`
	Messages      []model.Message     `json:"messages"`
	Sources       []string            `json:"sources"`
	Scores        []agent.ScoreRecord `json:"scores"`
	StopReason    agent.StopReason    `json:"stop_reason"`
	Failure       string              `json:"failure,omitempty"`
	Iterations    int                 `json:"iterations"`
	Provider      string              `json:"provider"`
	Model         string              `json:"model"`
	Search        string              `json:"search"`
	MaxIterations int                 `json:"max_iterations"`
	CreatedAt     time.Time           `json:"created_at"`
}

// ExportJSON renders the run with its full message history and sorted sources.
func ExportJSON(run storage.Run) ([]byte, error) {
	res := run.Result
	sources := append([]string{}, res.Sources...)
	sort.Strings(sources)

	doc := runExport{
		RunID:         res.RunID,
		Prompt:        res.Question,
		Answer:        res.Answer,
		References:    nonNil(res.References),
		Messages:      nonNilMessages(res.History),
		Sources:       sources,
		Scores:        res.Scores,
		StopReason:    res.StopReason,
		Failure:       res.Failure,
		Iterations:    res.Iterations,
		Provider:      run.Provider,
		Model:         run.Model,
		Search:        run.Search,
		MaxIterations: run.MaxIterations,
		CreatedAt:     run.CreatedAt,
	}
	if doc.Scores == nil {
		doc.Scores = []agent.ScoreRecord{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode run: %w", err)
	}
	return append(data, '\n'), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMessages(h model.History) []model.Message {
	if h == nil {
		return []model.Message{}
	}
	return h
}
