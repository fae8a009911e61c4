package output

import (
	"bytes"
	"encoding/json"
	"time"
)

// jsonOutput represents the full JSON output structure.
type jsonOutput struct {
	WebRoot string      `json:"web_root"`
	Run     *RunStats   `json:"run,omitempty"`
	Pages   []jsonPage  `json:"pages,omitempty"`
	Status  *StatusInfo `json:"status,omitempty"`
	Jobs    []JobInfo   `json:"jobs,omitempty"`
	Meta    jsonMeta    `json:"meta"`
}

// jsonPage represents a published page in JSON output.
type jsonPage struct {
	Path      string    `json:"path"`
	Query     string    `json:"query,omitempty"`
	Ajax      bool      `json:"ajax"`
	File      string    `json:"file"`
	Size      int64     `json:"size"`
	SizeHuman string    `json:"size_human"`
	Published time.Time `json:"published"`
	Age       string    `json:"age,omitempty"`
}

// jsonMeta represents metadata in JSON output.
type jsonMeta struct {
	TotalPages int      `json:"total_pages"`
	TotalSize  int64    `json:"total_size"`
	Warnings   []string `json:"warnings,omitempty"`
}

// JSONFormatter formats output as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildJSONOutput(r))
}

// buildJSONOutput converts Result to the JSON output structure.
func buildJSONOutput(r *Result) jsonOutput {
	pages := make([]jsonPage, len(r.Pages))
	for i, page := range r.Pages {
		pages[i] = buildJSONPage(page)
	}

	return jsonOutput{
		WebRoot: r.WebRoot,
		Run:     r.Run,
		Pages:   pages,
		Status:  r.Status,
		Jobs:    r.Jobs,
		Meta: jsonMeta{
			TotalPages: r.TotalPages,
			TotalSize:  r.PageBytes(),
			Warnings:   r.Warnings,
		},
	}
}

func buildJSONPage(page PageInfo) jsonPage {
	return jsonPage{
		Path:      page.Path,
		Query:     page.Query,
		Ajax:      page.Ajax,
		File:      page.File,
		Size:      page.Size,
		SizeHuman: page.SizeHuman,
		Published: page.Published,
		Age:       formatDurationString(page.Age),
	}
}

// formatDurationString formats a duration as a string for JSON output.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter formats pages as newline-delimited JSON (one object per
// line), suitable for streaming processing with tools like jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, page := range r.Pages {
		data, err := json.Marshal(buildJSONPage(page))
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
