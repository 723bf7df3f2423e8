package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/mvp-joe/comment-tree/internal/workspace"
	"github.com/schollz/progressbar/v3"
)

// CLIProgressReporter reports refresh progress with a progress bar on stderr.
type CLIProgressReporter struct {
	quiet bool
	out   io.Writer

	mu        sync.Mutex
	fileBar   *progressbar.ProgressBar
	startTime time.Time
	scanned   int
}

// NewCLIProgressReporter creates a new CLI progress reporter.
func NewCLIProgressReporter(quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{
		quiet: quiet,
		out:   os.Stderr,
	}
}

func (c *CLIProgressReporter) OnDiscoveryStart() {
	c.mu.Lock()
	c.startTime = time.Now()
	c.scanned = 0
	c.mu.Unlock()

	if c.quiet {
		return
	}
	log.Println("Discovering files...")
}

func (c *CLIProgressReporter) OnDiscoveryComplete(totalFiles int) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fileBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Scanning files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnFileScanned(filePath string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.scanned++
	if c.fileBar != nil {
		c.fileBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnComplete(stats workspace.Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fileBar != nil {
		c.fileBar.Finish()
		c.fileBar = nil
	}
	if c.quiet {
		return
	}

	fmt.Fprintf(c.out, "✓ Scan complete: %s files scanned in %.1fs\n",
		formatNumber(c.scanned), time.Since(c.startTime).Seconds())
}

// Scanned returns how many files the last refresh scanned.
func (c *CLIProgressReporter) Scanned() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scanned
}

// formatNumber renders n with thousands separators.
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
