package chat

import (
	"fmt"
	"strings"
	"time"
)

const systemPrompt = `You are Morpheus, a friendly AI guide in a task management app built around the Eisenhower matrix. Keep your responses short, casual and helpful, like a knowledgeable friend.

Style:
- One or two sentences per response
- Casual, direct language
- Practical advice, no philosophy
- Light Matrix references only when they fit

Talk like a friend giving quick advice, not a guru giving a lecture.`

func userPrompt(message string, snap Snapshot) string {
	now := snap.Now
	if now.IsZero() {
		now = time.Now()
	}

	var b strings.Builder
	b.WriteString("Current Context:\n")
	fmt.Fprintf(&b, "Time: %s\n", now.Format(time.RFC1123))
	fmt.Fprintf(&b, "Tasks: %d items (%d in progress, %d completed)\n", snap.Tasks, snap.InProgress, snap.Completed)
	if snap.Tracking > 0 {
		fmt.Fprintf(&b, "Timers running: %d\n", snap.Tracking)
	}
	fmt.Fprintf(&b, "Completed today: %d (%s tracked on them)\n", snap.CompletedToday, formatMinutes(snap.SecondsToday))
	fmt.Fprintf(&b, "Time tracked overall: %s\n", formatMinutes(snap.TotalSeconds))
	fmt.Fprintf(&b, "\nTheir Message: %s\n\nKeep your response short and friendly.", message)
	return b.String()
}

func formatMinutes(seconds int64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
}
