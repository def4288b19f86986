package env

import (
	"os"
	"strconv"
	"time"
)

const defaultFrameInterval = time.Second / 60

func Debug() bool {
	s := os.Getenv("DEBUG")
	return s != "" && s != "0" && s != "false"
}

// FrameInterval is the display frame budget recomputes are coalesced into.
// CONNECTLINES_FRAME_INTERVAL overrides it in milliseconds.
func FrameInterval() time.Duration {
	if s := os.Getenv("CONNECTLINES_FRAME_INTERVAL"); s != "" {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultFrameInterval
}
