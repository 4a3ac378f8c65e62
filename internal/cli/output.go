// Package cli provides output formatting and error guidance for the tanya command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/tanya/internal/indexer"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/storage"
	"github.com/hyperjump/tanya/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text or json)", s)
	}
}

// SourceLabel renders a cited source as "name — page N".
func SourceLabel(name string, page int) string {
	return fmt.Sprintf("%s — page %d", name, page)
}

// WriteAnswer writes an answer and its cited sources to w in the given format.
func WriteAnswer(w io.Writer, answer *models.Answer, queryTime time.Duration, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, models.NewAnswerResponse(answer, queryTime.Milliseconds()))
	}
	fmt.Fprintf(w, "\n%s\n", answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for _, label := range uniqueLabels(answer.Sources) {
			fmt.Fprintf(w, "  - %s\n", label)
		}
	}
	fmt.Fprintln(w)
	return nil
}

// uniqueLabels returns the source labels in retrieval order, without repeats; several
// chunks of one page collapse into one citation.
func uniqueLabels(sources []models.ScoredChunk) []string {
	seen := make(map[string]struct{}, len(sources))
	labels := make([]string, 0, len(sources))
	for _, s := range sources {
		label := SourceLabel(s.Chunk.SourceName, s.Chunk.PageNumber)
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	return labels
}

// WriteSources writes every retrieved chunk of an answer with its score and a content preview.
func WriteSources(w io.Writer, answer *models.Answer) {
	if answer == nil || len(answer.Sources) == 0 {
		fmt.Fprintln(w, "No sources yet.")
		return
	}
	if answer.StandaloneQuestion != "" && answer.StandaloneQuestion != answer.Question {
		fmt.Fprintf(w, "Searched for: %s\n", answer.StandaloneQuestion)
	}
	for i, s := range answer.Sources {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%d. %s | Score: %.4f\n", i+1, SourceLabel(s.Chunk.SourceName, s.Chunk.PageNumber), s.Score)
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(utils.SingleLine(s.Chunk.Content), 300))
	}
}

// WriteHistory writes the conversation so far.
func WriteHistory(w io.Writer, turns []models.ConversationTurn) {
	if len(turns) == 0 {
		fmt.Fprintln(w, "No questions asked yet.")
		return
	}
	for i, t := range turns {
		fmt.Fprintf(w, "[%d] Q: %s\n    A: %s\n", i+1, t.Question, t.Answer)
	}
}

// WriteBuildReport summarizes a knowledge-base build.
func WriteBuildReport(w io.Writer, report *indexer.BuildReport) {
	fmt.Fprintf(w, "Indexed %d document(s), %d page(s), %d chunk(s) in %s\n",
		len(report.Documents), report.Pages, report.Chunks, report.Duration.Round(time.Millisecond))
	for _, s := range report.Skipped {
		fmt.Fprintf(w, "  skipped %s: %s\n", s.Name, s.Reason)
	}
}

// WriteChunks writes chunks for inspection.
func WriteChunks(w io.Writer, chunks []*models.Chunk, format OutputFormat) error {
	if format == OutputJSON {
		if chunks == nil {
			chunks = []*models.Chunk{}
		}
		return writeJSON(w, chunks)
	}
	fmt.Fprintf(w, "%d chunk(s)\n", len(chunks))
	for i, c := range chunks {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "#%d %s [chunk %d, %d chars]\n", i+1, SourceLabel(c.SourceName, c.PageNumber), c.Index, len([]rune(c.Content)))
		fmt.Fprintf(w, "%s\n", c.Content)
	}
	return nil
}

// WriteTranscript writes archived turns, oldest first.
func WriteTranscript(w io.Writer, turns []*storage.TurnRecord, format OutputFormat) error {
	if format == OutputJSON {
		if turns == nil {
			turns = []*storage.TurnRecord{}
		}
		return writeJSON(w, turns)
	}
	if len(turns) == 0 {
		fmt.Fprintln(w, "No archived turns.")
		return nil
	}
	for _, t := range turns {
		fmt.Fprintf(w, "%s  session %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04:05"), t.SessionID)
		fmt.Fprintf(w, "  Q: %s\n", t.Question)
		fmt.Fprintf(w, "  A: %s\n", utils.Truncate(utils.SingleLine(t.Answer), 200))
		for _, s := range t.Sources {
			fmt.Fprintf(w, "     %s\n", SourceLabel(s.Source, s.Page))
		}
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
