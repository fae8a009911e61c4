package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
// It produces a visually appealing output suitable for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	if r.Run != nil {
		w.WriteString(f.formatRun(r.Run))
	}
	if len(r.Pages) > 0 {
		w.WriteString(f.formatPages(r))
	}
	if r.Status != nil {
		w.WriteString(f.formatStatus(r.Status))
	}
	if len(r.Jobs) > 0 {
		w.WriteString(f.formatJobs(r.Jobs))
	}

	if footer := f.formatFooter(r); footer != "" {
		w.WriteString(footer)
	}

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r.Warnings))
	}

	return nil
}

// formatHeader builds the header box naming the web root.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	var parts []string

	rootLabel := LabelStyle.Render("Web root:")
	rootValue := ValueStyle.Render(r.WebRoot)
	parts = append(parts, fmt.Sprintf("%s %s", rootLabel, rootValue))

	if r.Status != nil {
		parts = append(parts, f.formatDaemonStatus(r.Status))
	}

	return HeaderBox.Render(strings.Join(parts, "\n"))
}

// formatDaemonStatus returns a styled string indicating daemon status.
func (f *PrettyFormatter) formatDaemonStatus(s *StatusInfo) string {
	if !s.DaemonUp {
		return MutedStyle.Render("daemon: off")
	}
	return SuccessStyle.Render("daemon: up") +
		MutedStyle.Render(fmt.Sprintf(" (pid %d)", s.PID))
}

// formatRun builds the run summary block.
func (f *PrettyFormatter) formatRun(run *RunStats) string {
	var sb strings.Builder

	if run.Queued {
		sb.WriteString(SuccessStyle.Render(fmt.Sprintf("Queued %s of %d paths", run.Op, run.Total)))
		if run.JobID != "" {
			sb.WriteString(MutedStyle.Render("  job " + run.JobID))
		}
		sb.WriteString("\n")
		return sb.String()
	}

	verb := map[string]string{
		"publish": "Published",
		"delete":  "Deleted",
		"purge":   "Purged",
	}[run.Op]
	if verb == "" {
		verb = run.Op
	}

	summary := fmt.Sprintf("%s %d of %d paths", verb, run.Applied, run.Total)
	sb.WriteString(SuccessStyle.Render(summary))
	if run.Bytes > 0 {
		sb.WriteString(SizeStyle.Render("  " + humanize.IBytes(uint64(run.Bytes))))
	}
	sb.WriteString(MutedStyle.Render("  in " + formatDuration(run.Duration)))
	sb.WriteString("\n")

	if run.Skipped > 0 {
		sb.WriteString(MutedStyle.Render(fmt.Sprintf("  %d skipped (not cacheable)", run.Skipped)))
		sb.WriteString("\n")
	}
	if run.Failed != "" {
		sb.WriteString(ErrorStyle.Render("  aborted at " + run.Failed))
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatPages builds the page table with SIZE, AGE and PATH columns.
func (f *PrettyFormatter) formatPages(r *Result) string {
	var sb strings.Builder

	sizeHeader := TableHeaderStyle.Render("SIZE")
	ageHeader := TableHeaderStyle.Render("AGE")
	pathHeader := TableHeaderStyle.Render("PATH")
	sb.WriteString(fmt.Sprintf("  %s  %s  %s\n", sizeHeader, ageHeader, pathHeader))

	maxSizeWidth := 8
	for _, page := range r.Pages {
		if len(page.SizeHuman) > maxSizeWidth {
			maxSizeWidth = len(page.SizeHuman)
		}
	}

	for _, page := range r.Pages {
		sizeStr := SizeStyle.Render(padLeft(page.SizeHuman, maxSizeWidth))
		ageStr := MutedStyle.Render(padLeft(formatDuration(page.Age), 8))
		pathStr := PathStyle.Render(page.Label())
		sb.WriteString(fmt.Sprintf("  %s  %s  %s\n", sizeStr, ageStr, pathStr))
	}

	if r.TotalPages > len(r.Pages) {
		sb.WriteString(MutedStyle.Render(
			fmt.Sprintf("  ... %d more (raise --limit to see them)\n", r.TotalPages-len(r.Pages))))
	}

	return sb.String()
}

// formatStatus builds the standing-state block.
func (f *PrettyFormatter) formatStatus(s *StatusInfo) string {
	var sb strings.Builder

	line := func(label, value string) {
		sb.WriteString(fmt.Sprintf("  %s %s\n", LabelStyle.Render(label), ValueStyle.Render(value)))
	}

	line("Pages:", fmt.Sprintf("%d (%d ajax), %s",
		s.Pages, s.AjaxPages, humanize.IBytes(uint64(s.Bytes))))
	if !s.LastPublish.IsZero() {
		line("Last publish:", humanize.Time(s.LastPublish))
	}
	line("On disk:", fmt.Sprintf("%d files in %d directories", s.Files, s.Dirs))
	if s.Disk != nil && s.Disk.Total > 0 {
		line("Disk:", fmt.Sprintf("%s free of %s",
			humanize.IBytes(s.Disk.Free), humanize.IBytes(s.Disk.Total)))
	}
	if s.DaemonUp {
		line("Queue:", fmt.Sprintf("%d pending jobs", s.SpoolDepth))
		line("Socket:", s.Socket)
	}

	return sb.String()
}

// formatJobs builds the spooled-job table.
func (f *PrettyFormatter) formatJobs(jobs []JobInfo) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n",
		TableHeaderStyle.Render("JOB"),
		TableHeaderStyle.Render("OP"),
		TableHeaderStyle.Render("PATHS"),
		TableHeaderStyle.Render("AGE")))

	for _, job := range jobs {
		id := job.ID
		if len(id) > 8 {
			id = id[:8]
		}
		style := ValueStyle
		if job.Failed {
			style = ErrorStyle
		}
		sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n",
			style.Render(padLeft(id, 8)),
			ValueStyle.Render(padLeft(job.Op, 7)),
			SizeStyle.Render(padLeft(fmt.Sprintf("%d", job.Paths), 5)),
			MutedStyle.Render(formatDuration(time.Since(job.QueuedAt)))))
	}

	return sb.String()
}

// formatFooter builds the footer box with summary information.
func (f *PrettyFormatter) formatFooter(r *Result) string {
	if len(r.Pages) == 0 {
		return ""
	}

	var parts []string

	countLabel := LabelStyle.Render("Pages:")
	count := r.TotalPages
	if count < len(r.Pages) {
		count = len(r.Pages)
	}
	parts = append(parts, fmt.Sprintf("%s %s", countLabel, ValueStyle.Render(fmt.Sprintf("%d", count))))

	totalLabel := LabelStyle.Render("Total:")
	totalValue := SizeStyle.Render(humanize.IBytes(uint64(r.PageBytes())))
	parts = append(parts, fmt.Sprintf("%s %s", totalLabel, totalValue))

	hint := MutedStyle.Render("Use --format plain for unformatted output")
	parts = append(parts, hint)

	return FooterBox.Render(strings.Join(parts, "  "))
}

// formatWarnings builds a warning block.
func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder

	titleStyle := WarningStyle.Bold(true)
	sb.WriteString(titleStyle.Render("Warnings:"))
	sb.WriteString("\n")

	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}

	return sb.String()
}

// padLeft pads a string with spaces on the left to achieve the desired width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
