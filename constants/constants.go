package constants

import (
	"os"
	"strconv"
	"time"
)

func GetAWSRegion() string {
	if region := os.Getenv("AWS_REGION"); region != "" {
		return region
	}
	return "us-east-1"
}

// GetMediaPath is the default root scanned for MIDI files.
func GetMediaPath() string {
	if path := os.Getenv("JOYBEAT_MEDIA_PATH"); path != "" {
		return path
	}
	return "."
}

func GetHTTPAddr() string {
	if addr := os.Getenv("JOYBEAT_HTTP_ADDR"); addr != "" {
		return addr
	}
	return ":8080"
}

// GetPollInterval overrides the scheduler polling granularity.
// 0 means use the scheduler default.
func GetPollInterval() time.Duration {
	ms := os.Getenv("JOYBEAT_POLL_MS")
	if ms == "" {
		return 0
	}
	n, err := strconv.Atoi(ms)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Millisecond
}
