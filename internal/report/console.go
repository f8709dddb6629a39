package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/scry-cardgen/internal/dispatch"
	"github.com/phrazzld/scry-cardgen/internal/domain"
	"github.com/phrazzld/scry-cardgen/internal/redact"
)

var _ dispatch.Observer = (*Console)(nil)

// Banner describes the run configuration printed before processing starts.
type Banner struct {
	Endpoint          string
	Model             string
	Workers           int
	RequestsPerMinute int
	SkipProcessed     bool
	Input             string
	Output            string
}

// Console writes human-readable progress lines. It is safe for concurrent use.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// PrintBanner prints the configuration block.
func (c *Console) PrintBanner(b Banner) {
	endpoint := b.Endpoint
	if endpoint == "" {
		endpoint = "default"
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, "--- Configuration ---")
	fmt.Fprintf(c.w, "  Endpoint URL:   %s\n", redact.String(endpoint))
	fmt.Fprintf(c.w, "  Model:          %s\n", b.Model)
	fmt.Fprintf(c.w, "  Workers:        %d\n", b.Workers)
	fmt.Fprintf(c.w, "  API Rate Limit: %s\n", RateLimitLabel(b.RequestsPerMinute))
	fmt.Fprintf(c.w, "  Skip Processed: %t\n", b.SkipProcessed)
	if b.Input != "" {
		fmt.Fprintf(c.w, "  Input:          %s\n", b.Input)
	}
	if b.Output != "" {
		fmt.Fprintf(c.w, "  Output:         %s\n", redact.String(b.Output))
	}
	fmt.Fprintln(c.w, "---------------------")
}

// RateLimitLabel formats a requests-per-minute cap for display.
func RateLimitLabel(rpm int) string {
	if rpm <= 0 {
		return "Unlimited"
	}
	return fmt.Sprintf("%d RPM (%.2fs/req)", rpm, 60.0/float64(rpm))
}

// Printf writes a free-form line.
func (c *Console) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, args...)
}

// OnStart implements dispatch.Observer.
func (c *Console) OnStart(total, pending int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if skipped := total - pending; skipped > 0 {
		fmt.Fprintf(c.w, "Starting processing for %d words (%d already exist)...\n", total, skipped)
		return
	}
	fmt.Fprintf(c.w, "Starting processing for %d words...\n", total)
}

// OnRetry implements dispatch.Observer.
func (c *Console) OnRetry(item domain.WorkItem, attempt int, delay time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "ERROR %s (attempt %d): %s. Retrying in %s...\n",
		item.Word, attempt, oneLine(redact.Error(err)), FormatDuration(delay))
}

// OnOutcome implements dispatch.Observer.
func (c *Console) OnOutcome(o domain.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, OutcomeLine(o))
}

// OutcomeLine renders the progress line for o.
func OutcomeLine(o domain.Outcome) string {
	switch o.Status {
	case domain.OutcomeSuccess:
		return fmt.Sprintf("OK %s (%s)", o.Word, FormatDuration(o.Duration))
	case domain.OutcomeSkipped:
		return fmt.Sprintf("Skipping %s (already exists)", o.Word)
	default:
		reason := o.Reason
		if msg := oneLine(redact.Error(o.Err)); msg != "" {
			reason += ": " + msg
		}
		return fmt.Sprintf("FAILED %s after %d %s: %s", o.Word, o.Attempts, plural(o.Attempts, "attempt"), reason)
	}
}

// PrintSummary prints the final counts and the failed identifiers.
func (c *Console) PrintSummary(s *domain.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.w)
	fmt.Fprintf(c.w, "Processed %d words in %s: %d ok, %d skipped, %d failed.\n",
		s.Total(),
		FormatDuration(s.Elapsed()),
		s.Count(domain.OutcomeSuccess),
		s.Count(domain.OutcomeSkipped),
		s.Count(domain.OutcomeFailed))

	failed := s.Failed()
	if len(failed) == 0 {
		return
	}
	fmt.Fprintln(c.w, "Failed words:")
	for _, w := range failed {
		fmt.Fprintf(c.w, "  %s\n", w)
	}
}

// FormatDuration renders d with one decimal in seconds, e.g. "1.2s".
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
