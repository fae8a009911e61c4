package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// PlainFormatter formats output as simple tab-separated text.
// It produces plain output suitable for scripting and piping.
// No colors or styling are applied.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	if r.Run != nil {
		fmt.Fprintf(w, "op=%s total=%d applied=%d skipped=%d bytes=%d duration=%s",
			r.Run.Op, r.Run.Total, r.Run.Applied, r.Run.Skipped, r.Run.Bytes, r.Run.Duration)
		if r.Run.Queued {
			fmt.Fprintf(w, " queued=true job=%s", r.Run.JobID)
		}
		if r.Run.Failed != "" {
			fmt.Fprintf(w, " failed=%s", r.Run.Failed)
		}
		w.WriteByte('\n')
	}

	if len(r.Pages) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
		if _, err := tw.Write([]byte("SIZE\tPUBLISHED\tPATH\n")); err != nil {
			return err
		}
		for _, page := range r.Pages {
			row := page.SizeHuman + "\t" + page.Published.Format("2006-01-02 15:04:05") + "\t" + page.Label() + "\n"
			if _, err := tw.Write([]byte(row)); err != nil {
				return err
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if r.Status != nil {
		s := r.Status
		fmt.Fprintf(w, "daemon_up=%t pages=%d ajax_pages=%d bytes=%d files=%d dirs=%d spool_depth=%d\n",
			s.DaemonUp, s.Pages, s.AjaxPages, s.Bytes, s.Files, s.Dirs, s.SpoolDepth)
	}

	for _, job := range r.Jobs {
		fmt.Fprintf(w, "job=%s op=%s paths=%d queued_at=%s failed=%t\n",
			job.ID, job.Op, job.Paths, job.QueuedAt.Format("2006-01-02T15:04:05Z07:00"), job.Failed)
	}

	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
