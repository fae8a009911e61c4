package output

import (
	"bytes"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlOutput represents the full YAML output structure.
type yamlOutput struct {
	WebRoot string      `yaml:"web_root"`
	Run     *RunStats   `yaml:"run,omitempty"`
	Pages   []yamlPage  `yaml:"pages,omitempty"`
	Status  *StatusInfo `yaml:"status,omitempty"`
	Jobs    []JobInfo   `yaml:"jobs,omitempty"`
	Meta    yamlMeta    `yaml:"meta"`
}

// yamlPage represents a published page in YAML output.
type yamlPage struct {
	Path      string    `yaml:"path"`
	Query     string    `yaml:"query,omitempty"`
	Ajax      bool      `yaml:"ajax"`
	File      string    `yaml:"file"`
	Size      int64     `yaml:"size"`
	SizeHuman string    `yaml:"size_human"`
	Published time.Time `yaml:"published"`
	Age       string    `yaml:"age,omitempty"`
}

// yamlMeta represents metadata in YAML output.
type yamlMeta struct {
	TotalPages int      `yaml:"total_pages"`
	TotalSize  int64    `yaml:"total_size"`
	Warnings   []string `yaml:"warnings,omitempty"`
}

// YAMLFormatter formats output as YAML.
// It produces the same structure as JSONFormatter but in YAML format.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	pages := make([]yamlPage, len(r.Pages))
	for i, page := range r.Pages {
		pages[i] = yamlPage{
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

	out := yamlOutput{
		WebRoot: r.WebRoot,
		Run:     r.Run,
		Pages:   pages,
		Status:  r.Status,
		Jobs:    r.Jobs,
		Meta: yamlMeta{
			TotalPages: r.TotalPages,
			TotalSize:  r.PageBytes(),
			Warnings:   r.Warnings,
		},
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(out); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
