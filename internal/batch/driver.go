// Package batch runs a conversion over a directory of ListenBrainz exports.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/convert"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/history"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/listenbrainz"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/logging"
)

// DefaultUnknownsPath is the default list of unresolved songs.
const DefaultUnknownsPath = "unknown_songs.txt"

// unknownSeparator joins artist and title in the unknowns list.
const unknownSeparator = " – "

// Converter converts a single listen.
type Converter interface {
	Convert(ctx context.Context, l listenbrainz.Listen) (convert.Result, error)
}

// Options configures a Driver.
type Options struct {
	// InputDir is searched recursively for .json and .jsonl exports.
	InputDir string
	// Output is the output file, or the output directory when MaxPerFile
	// is set.
	Output string
	// UnknownsPath receives the unresolved songs. Empty disables it.
	UnknownsPath string
	// MaxPerFile splits the output into Spotify-style chunks.
	MaxPerFile int
	// Progress receives the progress bar when it is a terminal.
	Progress io.Writer
	Logger   *slog.Logger
}

// Driver reads every export, converts each listen and writes the history.
type Driver struct {
	conv   Converter
	writer *history.Writer
	opts   Options
	logger *slog.Logger
}

// New creates a Driver.
func New(conv Converter, opts Options) *Driver {
	if opts.Output == "" {
		opts.Output = history.DefaultFileName
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	return &Driver{
		conv:   conv,
		writer: history.NewWriter(opts.MaxPerFile),
		opts:   opts,
		logger: logging.Component(opts.Logger, "batch"),
	}
}

// Run converts every listen under the input directory. Unreadable files and
// malformed lines are skipped. Cancellation and unauthorized errors abort
// the run before anything is written; the partial stats are still returned.
func (d *Driver) Run(ctx context.Context) (*Stats, error) {
	start := time.Now()
	stats := &Stats{RunID: uuid.NewString()}
	logger := d.logger.With("run_id", stats.RunID)

	listens, err := d.read(stats, logger)
	if err != nil {
		return stats, err
	}

	logger.Info("converting", "files", stats.Files, "listens", len(listens))

	var (
		streams  = make([]history.Stream, 0, len(listens))
		unknowns = make(map[string]struct{})
		bar      = newProgress(d.opts.Progress, len(listens), logger)
	)
	for _, l := range listens {
		if err := ctx.Err(); err != nil {
			bar.finish()
			return stats, err
		}

		res, err := d.conv.Convert(ctx, l)
		stats.APICalls += res.APICalls
		if res.CacheHit {
			stats.CacheHits++
		}
		if err != nil {
			if errors.Is(err, convert.ErrInvalidListen) {
				logger.Warn("skipping invalid listen", "listened_at", l.ListenedAt, "artist", l.Artist(), "title", l.Track())
				stats.Invalid++
				bar.add()
				continue
			}
			bar.finish()
			return stats, err
		}

		switch res.Outcome {
		case convert.OutcomeSpotify:
			stats.Spotify++
		case convert.OutcomeEmbeddedURI:
			stats.EmbeddedURI++
		case convert.OutcomeResolved:
			stats.Resolved++
		case convert.OutcomeUnresolved:
			stats.Unresolved++
			if res.LookupErr != nil {
				stats.LookupFailed++
			}
			unknowns[l.Artist()+unknownSeparator+l.Track()] = struct{}{}
		case convert.OutcomeSkipped:
			stats.Dropped++
		}
		if res.Outcome != convert.OutcomeSkipped {
			streams = append(streams, res.Stream)
		}
		bar.add()
	}
	bar.finish()

	history.Sort(streams)
	files, err := d.writer.Write(d.opts.Output, streams)
	if err != nil {
		return stats, fmt.Errorf("writing history: %w", err)
	}
	stats.OutputFiles = files

	if d.opts.UnknownsPath != "" {
		if err := writeUnknowns(d.opts.UnknownsPath, unknowns); err != nil {
			return stats, err
		}
	}

	tally(stats, streams)
	stats.Unknowns = len(unknowns)
	stats.Elapsed = time.Since(start)

	logger.Info("done",
		"written", stats.Written,
		"resolved", stats.Resolved,
		"unresolved", stats.Unresolved,
		"api_calls", stats.APICalls,
		"files", len(files),
	)
	return stats, nil
}

// read loads every export file in order. Only a missing or unreadable
// input directory is an error.
func (d *Driver) read(stats *Stats, logger *slog.Logger) ([]listenbrainz.Listen, error) {
	paths, err := listenbrainz.FindFiles(d.opts.InputDir)
	if err != nil {
		return nil, fmt.Errorf("finding input files: %w", err)
	}
	stats.Files = len(paths)

	var listens []listenbrainz.Listen
	for _, path := range paths {
		res, err := listenbrainz.ReadFile(path)
		if err != nil {
			logger.Warn("skipping file", "path", path, "error", err)
			stats.FilesSkipped++
			continue
		}
		for _, le := range res.Skipped {
			logger.Warn("skipping malformed record", "path", path, "error", le.Error())
		}
		stats.LinesSkipped += len(res.Skipped)
		listens = append(listens, res.Listens...)
	}
	stats.Listens = len(listens)
	return listens, nil
}

// tally fills the output-derived counters.
func tally(stats *Stats, streams []history.Stream) {
	artists := make(map[string]struct{})
	tracks := make(map[string]struct{})
	var played int64
	for _, s := range streams {
		artists[strings.ToLower(s.MasterMetadataAlbumArtistName)] = struct{}{}
		tracks[strings.ToLower(s.MasterMetadataAlbumArtistName+"\x00"+s.MasterMetadataTrackName)] = struct{}{}
		played += s.MsPlayed
	}
	stats.Written = len(streams)
	stats.UniqueArtists = len(artists)
	stats.UniqueTracks = len(tracks)
	stats.PlayTime = time.Duration(played) * time.Millisecond
}

// writeUnknowns writes the sorted unique lines, one per line.
func writeUnknowns(path string, set map[string]struct{}) error {
	lines := make([]string, 0, len(set))
	for line := range set {
		lines = append(lines, line)
	}
	slices.Sort(lines)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating unknowns directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return fmt.Errorf("writing unknowns: %w", err)
	}
	return nil
}
