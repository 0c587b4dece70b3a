package batch

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// logEvery is the log cadence when no progress bar is shown.
const logEvery = 100

// progress reports conversion progress as a bar on a terminal and as
// periodic log lines otherwise.
type progress struct {
	bar    *progressbar.ProgressBar
	logger *slog.Logger
	total  int
	done   int
}

func newProgress(w io.Writer, total int, logger *slog.Logger) *progress {
	p := &progress{logger: logger, total: total}
	if f, ok := w.(*os.File); ok && isTerminal(f) && total > 0 {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("converting"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("listens"),
			progressbar.OptionShowIts(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	return p
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *progress) add() {
	p.done++
	if p.bar != nil {
		_ = p.bar.Add(1)
		return
	}
	if p.done%logEvery == 0 {
		p.logger.Info("progress", "processed", p.done, "total", p.total)
	}
}

func (p *progress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
