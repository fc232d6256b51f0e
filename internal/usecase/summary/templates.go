package summary

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/expatscout/internal/domain/intent"
	"github.com/kailas-cloud/expatscout/internal/domain/record"
)

const (
	promptTopResults   = 5
	snippetPromptChars = 200
)

// Template returns the canned summary for an intent.
func Template(in intent.Intent, total int, location string) string {
	switch in {
	case intent.Event:
		return fmt.Sprintf("🎉 Found %d exciting events for you in %s! Check them out below.", total, location)
	case intent.Job:
		return fmt.Sprintf("💼 Found %d job opportunities in %s! Explore the listings below.", total, location)
	default:
		return fmt.Sprintf("👋 I can help you discover events and job opportunities in %s. "+
			"Try asking about concerts, meetups or jobs!", location)
	}
}

// ItemLine renders one result for the prompt.
func ItemLine(r record.Record) string {
	date := record.FirstNonEmpty(r.StartDate, "Date TBA")
	where := record.FirstNonEmpty(r.Venue, r.Company, "Location TBA")
	return fmt.Sprintf("• %s - %s at %s", r.Title, date, where)
}

// BuildPrompt renders the intent-specific prompt.
func BuildPrompt(in Input, snippets []string) string {
	var b strings.Builder

	switch in.Intent {
	case intent.Event:
		b.WriteString("You are a friendly travel and events assistant. " +
			"Generate a brief, enthusiastic 2-3 sentence summary for the user.\n\n")
	case intent.Job:
		b.WriteString("You are a career advisor assistant. " +
			"Generate a brief, professional 2-3 sentence summary for the user.\n\n")
	default:
		b.WriteString("You are a friendly relocation assistant for people moving abroad. " +
			"Answer in 2-3 sentences.\n\n")
	}

	fmt.Fprintf(&b, "User is searching for: %q in %s\n", in.Query, in.Location)
	if in.Intent != intent.General {
		fmt.Fprintf(&b, "Total results found: %d\n\n", in.Total)
		if in.Intent == intent.Event {
			b.WriteString("Top 5 events:\n")
		} else {
			b.WriteString("Top 5 opportunities:\n")
		}
		for _, r := range in.Results[:min(promptTopResults, len(in.Results))] {
			b.WriteString(ItemLine(r))
			b.WriteByte('\n')
		}
	}

	b.WriteString("\nAdditional context (if relevant):\n")
	if len(snippets) == 0 {
		b.WriteString("No additional context available\n")
	}
	for _, c := range snippets {
		b.WriteString("• ")
		b.WriteString(record.Truncate(c, snippetPromptChars))
		b.WriteByte('\n')
	}

	switch in.Intent {
	case intent.Event:
		b.WriteString("\nWrite a warm, helpful 2-3 sentence summary that highlights the most interesting events, " +
			"mentions any notable patterns such as many concerts or diverse venues, and encourages the user to explore.\n" +
			"Be conversational and enthusiastic but concise. Don't repeat the full event list.")
	case intent.Job:
		b.WriteString("\nWrite a helpful 2-3 sentence summary that highlights key opportunities, " +
			"mentions notable companies or roles, and encourages professional exploration.\n" +
			"Be professional yet warm. Don't repeat the full job list.")
	default:
		b.WriteString("\nUse the context if it helps. Suggest asking about local events or jobs when it does not.")
	}
	return b.String()
}
