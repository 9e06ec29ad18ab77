package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the process-wide line logger writing to stdout. Tests may
// redirect it with SetOutput.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// Emit writes one structured JSON line. A marshal failure is reported as a
// plain error line instead of being dropped.
func Emit(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Printf(`{"level":"error","msg":"log marshal failed","err":%q}`, err.Error())
		return
	}
	Logger().Println(string(data))
}
