package obs

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

var (
	logMu  sync.Mutex
	logDst io.Writer = os.Stdout

	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared plain logger for startup and fatal paths.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogEvent emits one JSON line. A missing "ts" field is stamped with the
// current time so every line is sortable.
func LogEvent(entry map[string]any) {
	if _, ok := entry["ts"]; !ok {
		entry["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(`{"level":"error","msg":"log marshal failed"}`)
	}
	logMu.Lock()
	defer logMu.Unlock()
	_, _ = logDst.Write(append(data, '\n'))
}
