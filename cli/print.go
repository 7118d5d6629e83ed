package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/richinex/reflexion/agent"
	"github.com/richinex/reflexion/model"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold).SprintFunc()
	goodColor   = color.New(color.FgGreen).SprintFunc()
	warnColor   = color.New(color.FgYellow).SprintFunc()
	badColor    = color.New(color.FgRed).SprintFunc()
	dimColor    = color.New(color.FgHiBlack).SprintFunc()
)

const rule = "============================================================"

// PrintResult writes the final answer, its references and a score trail.
func PrintResult(out io.Writer, res agent.Result, verbose bool) {
	if verbose {
		printHistory(out, res.History)
	}

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, headerColor("FINAL ANSWER"))
	fmt.Fprintln(out, rule)

	if !res.HasAnswer() {
		fmt.Fprintln(out, warnColor("No answer produced."))
	} else {
		answer := res.AnswerText()
		fmt.Fprintln(out, answer)
		if len(res.References) > 0 && !strings.Contains(answer, "References") {
			fmt.Fprintln(out)
			fmt.Fprintln(out, headerColor("References:"))
			for i, ref := range res.References {
				fmt.Fprintf(out, "  [%d] %s\n", i+1, ref)
			}
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, rule)
	printScores(out, res.Scores)
	fmt.Fprintf(out, "Iterations: %d  Stop: %s  Sources: %d  Time: %s\n",
		res.Iterations, stopReasonText(res.StopReason), len(res.Sources), res.Elapsed.Round(time.Millisecond))
	if res.Failure != "" {
		fmt.Fprintf(out, "%s %s\n", badColor("Failure:"), res.Failure)
	}
	if res.RunID != "" {
		fmt.Fprintln(out, dimColor("Run: "+res.RunID))
	}
}

func printScores(out io.Writer, scores []agent.ScoreRecord) {
	if len(scores) == 0 {
		return
	}
	parts := make([]string, 0, len(scores))
	for _, s := range scores {
		parts = append(parts, scoreColor(s.Score))
	}
	fmt.Fprintf(out, "Scores: %s\n", strings.Join(parts, " -> "))
}

func scoreColor(score float64) string {
	text := fmt.Sprintf("%.2f", score)
	switch {
	case score >= 70:
		return goodColor(text)
	case score >= 40:
		return warnColor(text)
	default:
		return badColor(text)
	}
}

// printHistory replays the conversation, one line per message.
func printHistory(out io.Writer, history model.History) {
	fmt.Fprintln(out, headerColor("History:"))
	for i, m := range history {
		label := string(m.Type)
		switch m.Type {
		case model.MessageHuman:
			label = goodColor(label)
		case model.MessageModelCall:
			label = headerColor(label)
		default:
			label = dimColor(label)
		}
		fmt.Fprintf(out, "  %2d %s %s\n", i, label, truncateString(oneLine(describe(m)), 120))
	}
	fmt.Fprintln(out)
}

func describe(m model.Message) string {
	switch m.Type {
	case model.MessageModelCall:
		names := make([]string, 0, len(m.Calls))
		for _, c := range m.Calls {
			args := c.Args()
			names = append(names, fmt.Sprintf("%s(queries=%d)", c.Name, len(args.SearchQueries)))
		}
		return strings.Join(names, ", ")
	default:
		return m.Content
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
