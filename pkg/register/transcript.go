package register

import (
	"fmt"
	"os"
	"time"
)

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// openTranscript opens the wire transcript sink in append mode.
func openTranscript(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open transcript %s: %w", path, err)
	}
	return f, nil
}
