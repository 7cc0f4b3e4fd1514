package schedule

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash digests one group's schedule for change detection. The input lists are
// normalized first, so the digest depends only on the canonical interval data
// and the schedule date, not on source ordering or separator style.
func Hash(scheduleDate string, off, on, maybe []string) string {
	canonical := scheduleDate +
		"|OFF:" + strings.Join(Normalize(off), ",") +
		";ON:" + strings.Join(Normalize(on), ",") +
		";MAYBE:" + strings.Join(Normalize(maybe), ",")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
