package batch

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Stats summarizes a run.
type Stats struct {
	RunID string

	Files        int
	FilesSkipped int
	LinesSkipped int
	Listens      int
	Invalid      int

	Written       int
	Spotify       int
	EmbeddedURI   int
	Resolved      int
	Unresolved    int
	Dropped       int
	LookupFailed  int
	APICalls      int
	CacheHits     int
	UniqueArtists int
	UniqueTracks  int
	PlayTime      time.Duration
	Unknowns      int

	OutputFiles []string
	Elapsed     time.Duration
}

// Render writes the summary as a table.
func (s *Stats) Render(w io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Run %s", s.RunID)
	tw.AppendHeader(table.Row{"Metric", "Value"})

	rows := []table.Row{
		{"Input files", s.Files},
		{"Files skipped", s.FilesSkipped},
		{"Records skipped", s.LinesSkipped},
		{"Listens read", s.Listens},
		{"Invalid listens", s.Invalid},
		{"Entries written", s.Written},
		{"Spotify pass-through", s.Spotify},
		{"Embedded track URI", s.EmbeddedURI},
		{"Resolved", s.Resolved},
		{"Unresolved", s.Unresolved},
		{"Dropped (Spotify)", s.Dropped},
		{"Lookup failures", s.LookupFailed},
		{"API calls", s.APICalls},
		{"Cache hits", s.CacheHits},
		{"Unique artists", s.UniqueArtists},
		{"Unique tracks", s.UniqueTracks},
		{"Play time", formatPlayTime(s.PlayTime)},
		{"Unknown songs", s.Unknowns},
		{"Output files", strconv.Itoa(len(s.OutputFiles))},
		{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
	}
	tw.AppendRows(rows)

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	tw.Render()
}

// formatPlayTime renders d as hours and minutes.
func formatPlayTime(d time.Duration) string {
	h := int64(d / time.Hour)
	m := int64((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %02dm", h, m)
}
