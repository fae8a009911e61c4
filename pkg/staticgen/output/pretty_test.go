package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyFormatter_Format_RunSummary(t *testing.T) {
	formatter := &PrettyFormatter{}
	var buf bytes.Buffer

	result := &Result{
		WebRoot: "/var/www/html",
		Run: &RunStats{
			Op:       "publish",
			Total:    3,
			Applied:  3,
			Bytes:    4096,
			Duration: 2 * time.Second,
		},
	}

	err := formatter.Format(&buf, result)
	require.NoError(t, err)

	output := buf.String()

	// Header should contain the web root
	assert.Contains(t, output, "/var/www/html")

	// Run summary with verb, counts and bytes
	assert.Contains(t, output, "Published 3 of 3 paths")
	assert.Contains(t, output, "4.0 KiB")
	assert.Contains(t, output, "2.0s")
}

func TestPrettyFormatter_Format_RunVerbs(t *testing.T) {
	tests := []struct {
		op       string
		expected string
	}{
		{op: "publish", expected: "Published"},
		{op: "delete", expected: "Deleted"},
		{op: "purge", expected: "Purged"},
		{op: "regen", expected: "regen"},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			formatter := &PrettyFormatter{}
			var buf bytes.Buffer

			result := &Result{
				WebRoot: "/var/www",
				Run:     &RunStats{Op: tt.op, Total: 1, Applied: 1},
			}

			err := formatter.Format(&buf, result)
			require.NoError(t, err)
			assert.Contains(t, buf.String(), tt.expected)
		})
	}
}

func TestPrettyFormatter_Format_RunSkipped(t *testing.T) {
	formatter := &PrettyFormatter{}
	var buf bytes.Buffer

	result := &Result{
		WebRoot: "/var/www",
		Run: &RunStats{
			Op:      "publish",
			Total:   5,
			Applied: 3,
			Skipped: 2,
		},
	}

	err := formatter.Format(&buf, result)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "2 skipped (not cacheable)")
}

func TestPrettyFormatter_Format_RunAborted(t *testing.T) {
	formatter := &PrettyFormatter{}
	var buf bytes.Buffer

	result := &Result{
		WebRoot: "/var/www",
		Run: &RunStats{
			Op:      "publish",
			Total:   4,
			Applied: 2,
			Failed:  "/bad/",
		},
	}

	err := formatter.Format(&buf, result)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "aborted at /bad/")
}

func TestPrettyFormatter_Format_RunQueued(t *testing.T) {
	formatter := &PrettyFormatter{}
	var buf bytes.Buffer

	result := &Result{
		WebRoot: "/var/www",
		Run: &RunStats{
			Op:     "publish",
			Total:  7,
			Queued: true,
			JobID:  "9f2d1c0a-5a11-4a71-b7a4-1d2f3e4a5b6c",
		},
	}

	err := formatter.Format(&buf, result)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Queued publish of 7 paths")
	assert.Contains(t, output, "9f2d1c0a")
}

func TestPrettyFormatter_Format_PageTable(t *testing.T) {
	formatter := &PrettyFormatter{}
	var buf bytes.Buffer

	result := &Result{
		WebRoot: "/var/www/html",
		Pages: []PageInfo{
			{Path: "/blog/", Size: 15360, SizeHuman: "15 KiB", Age: 2 * time.Hour},
			{Path: "/search", Query: "q=go", Size: 2048, SizeHuman: "2.0 KiB", Age: 5 * time.Minute},
			{Path: "/feed/", Ajax: true, Size: 512, SizeHuman: "512 B", Age: 30 * time.Second},
		},
		TotalPages: 3,
	}

	err := formatter.Format(&buf, result)
	require.NoError(t, err)

	output := buf.String()

	// Column headers
	assert.Contains(t, output, "SIZE")
	assert.Contains(t, output, "AGE")
	assert.Contains(t, output, "PATH")

	// Page labels and sizes
	assert.Contains(t, output, "/blog/")
	assert.Contains(t, output, "/search?q=go")
	assert.Contains(t, output, "/feed/ [ajax]")
	assert.Contains(t, output, "15 KiB")
	assert.Contains(t, output, "512 B")
}

func TestPrettyFormatter_Format_PagesTruncated(t *testing.T) {
	formatter := &PrettyFormatter{}
	var buf bytes.Buffer

	result := &Result{
		WebRoot: "/var/www",
		Pages: []PageInfo{
			{Path: "/a", Size: 100, SizeHuman: "100 B"},
			{Path: "/b", Size: 100, SizeHuman: "100 B"},
		},
		TotalPages: 50,
	}

	err := formatter.Format(&buf, result)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "48 more")
}

func TestPrettyFormatter_Format_Status(t *testing.T) {
	tests := []struct {
		name     string
		daemonUp bool
	}{
		{name: "daemon up", daemonUp: true},
		{name: "daemon down", daemonUp: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := &PrettyFormatter{}
			var buf bytes.Buffer

			result := &Result{
				WebRoot: "/var/www/html",
				Status: &StatusInfo{
					DaemonUp:    tt.daemonUp,
					PID:         4242,
					Socket:      "/run/staticgend.sock",
					SpoolDepth:  3,
					Pages:       120,
					AjaxPages:   40,
					Bytes:       1048576,
					LastPublish: time.Now().Add(-10 * time.Minute),
					Files:       160,
					Dirs:        22,
				},
			}

			err := formatter.Format(&buf, result)
			require.NoError(t, err)

			output := buf.String()
			assert.Contains(t, output, "120 (40 ajax)")
			assert.Contains(t, output, "160 files in 22 directories")

			if tt.daemonUp {
				assert.Contains(t, output, "daemon: up")
				assert.Contains(t, output, "pid 4242")
				assert.Contains(t, output, "3 pending jobs")
				assert.Contains(t, output, "/run/staticgend.sock")
			} else {
				assert.Contains(t, output, "daemon: off")
				assert.NotContains(t, output, "pending jobs")
			}
		})
	}
}

func TestPrettyFormatter_Format_StatusDisk(t *testing.T) {
	formatter := &PrettyFormatter{}
	var buf bytes.Buffer

	result := &Result{
		WebRoot: "/var/www",
		Status: &StatusInfo{
			Disk: &DiskInfo{
				Total: 100 * 1024 * 1024 * 1024,
				Free:  25 * 1024 * 1024 * 1024,
				Used:  75 * 1024 * 1024 * 1024,
			},
		},
	}

	err := formatter.Format(&buf, result)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "25 GiB free of 100 GiB")
}

func TestPrettyFormatter_Format_Jobs(t *testing.T) {
	formatter := &PrettyFormatter{}
	var buf bytes.Buffer

	result := &Result{
		WebRoot: "/var/www",
		Jobs: []JobInfo{
			{
				ID:       "9f2d1c0a-5a11-4a71-b7a4-1d2f3e4a5b6c",
				Op:       "publish",
				Paths:    12,
				QueuedAt: time.Now().Add(-time.Minute),
			},
			{
				ID:       "0b1c2d3e-ffff-4a71-b7a4-aaaaaaaaaaaa",
				Op:       "delete",
				Paths:    1,
				QueuedAt: time.Now().Add(-time.Hour),
				Failed:   true,
			},
		},
	}

	err := formatter.Format(&buf, result)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "JOB")
	assert.Contains(t, output, "OP")
	assert.Contains(t, output, "PATHS")

	// IDs are shortened to eight characters
	assert.Contains(t, output, "9f2d1c0a")
	assert.NotContains(t, output, "9f2d1c0a-5a11")
	assert.Contains(t, output, "publish")
	assert.Contains(t, output, "delete")
}

func TestPrettyFormatter_Format_Warnings(t *testing.T) {
	formatter := &PrettyFormatter{}
	var buf bytes.Buffer

	result := &Result{
		WebRoot: "/var/www",
		Run:     &RunStats{Op: "publish", Total: 1, Applied: 1},
		Warnings: []string{
			"manifest unavailable: record skipped",
			"daemon not reachable",
		},
	}

	err := formatter.Format(&buf, result)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "manifest unavailable")
	assert.Contains(t, output, "daemon not reachable")
}

func TestPrettyFormatter_Format_Footer(t *testing.T) {
	formatter := &PrettyFormatter{}
	var buf bytes.Buffer

	result := &Result{
		WebRoot: "/var/www",
		Pages: []PageInfo{
			{Path: "/a", Size: 1073741824, SizeHuman: "1.0 GiB"},
			{Path: "/b", Size: 1073741824, SizeHuman: "1.0 GiB"},
		},
		TotalPages: 2,
	}

	err := formatter.Format(&buf, result)
	require.NoError(t, err)

	output := buf.String()
	// Footer totals the page bytes (2 GiB)
	assert.Contains(t, output, "2.0 GiB")
	assert.Contains(t, output, "--format plain")
}

func TestPrettyFormatter_Format_NoFooterWithoutPages(t *testing.T) {
	formatter := &PrettyFormatter{}
	var buf bytes.Buffer

	result := &Result{
		WebRoot: "/var/www",
		Run:     &RunStats{Op: "delete", Total: 1, Applied: 1},
	}

	err := formatter.Format(&buf, result)
	require.NoError(t, err)

	assert.NotContains(t, buf.String(), "--format plain")
}

func TestPrettyFormatter_Registration(t *testing.T) {
	// Verify the formatter is registered as "pretty"
	formatter, err := Get("pretty")
	require.NoError(t, err)
	assert.IsType(t, &PrettyFormatter{}, formatter)
}

func TestPadLeft(t *testing.T) {
	tests := []struct {
		s        string
		width    int
		expected string
	}{
		{s: "a", width: 3, expected: "  a"},
		{s: "abc", width: 3, expected: "abc"},
		{s: "abcd", width: 3, expected: "abcd"},
		{s: "", width: 2, expected: "  "},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, padLeft(tt.s, tt.width))
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{name: "zero", duration: 0, expected: "0ms"},
		{name: "milliseconds", duration: 500 * time.Millisecond, expected: "500ms"},
		{name: "seconds", duration: 1500 * time.Millisecond, expected: "1.5s"},
		{name: "minutes", duration: 90 * time.Second, expected: "1m 30s"},
		{name: "hours", duration: 2*time.Hour + 5*time.Minute, expected: "2h 5m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatDuration(tt.duration))
		})
	}
}
