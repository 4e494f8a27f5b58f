package pack

import (
	"fmt"
	"os"
	"time"
)

// historyTimeFormat is the timestamp layout used in log block titles and
// stash messages.
const historyTimeFormat = "2006-01-02 15:04:05"

// AppendHistory appends a titled, timestamped block followed by the report
// body to the append-only history log. Each block is self-contained and
// comprehensible without the session that produced it. Blocks are separated
// by a blank line.
func AppendHistory(path, title, body string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history log: %w", err)
	}
	defer f.Close()

	stamp := time.Now().Format(historyTimeFormat)
	if _, err := fmt.Fprintf(f, "==== %s (%s) ====\n%s\n", title, stamp, body); err != nil {
		return fmt.Errorf("append history log: %w", err)
	}
	return nil
}
