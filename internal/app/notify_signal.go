package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// TouchNotifySignal stamps the signal file with "<viewID> <revision> <key>" so
// fsnotify watchers in other processes can detect the write and skip their own.
// Creates parent dir and file if needed.
func TouchNotifySignal(signalPath, viewID, key string) (string, error) {
	if signalPath == "" {
		return "", nil
	}
	dir := filepath.Dir(signalPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create signal file dir: %w", err)
	}
	rev := strconv.FormatInt(time.Now().UnixNano(), 10)
	line := fmt.Sprintf("%s %s %s", viewID, rev, key)
	if err := os.WriteFile(signalPath, []byte(line), 0644); err != nil {
		return "", fmt.Errorf("write signal file: %w", err)
	}
	return rev, nil
}

// signalStamp is a parsed signal file.
type signalStamp struct {
	ViewID   string
	Revision string
	Key      string
}

func parseSignal(data []byte) (signalStamp, bool) {
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return signalStamp{}, false
	}
	s := signalStamp{ViewID: fields[0], Revision: fields[1]}
	if len(fields) > 2 {
		s.Key = fields[2]
	}
	return s, true
}

func readSignal(signalPath string) (signalStamp, bool) {
	data, err := os.ReadFile(signalPath)
	if err != nil {
		return signalStamp{}, false
	}
	return parseSignal(data)
}
