package helpers

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jodli/geizhalsbot/logger"
)

// AlertSink receives operator-visible alerts. Alerts never reach end users.
type AlertSink interface {
	Alert(item string, err error)
}

// AlertLog appends operator alerts to a file and mirrors them to the error log
type AlertLog struct {
	mu        sync.Mutex
	alertFile string
}

// NewAlertLog creates a new alert log writing to alertFile
func NewAlertLog(alertFile string) *AlertLog {
	return &AlertLog{
		alertFile: alertFile,
	}
}

// Alert logs an alert to the file with item key and timestamp
func (l *AlertLog) Alert(item string, err error) {
	logger.ForWorker().Error().Str("item", item).Err(err).Msg("Operator alert")

	l.mu.Lock()
	defer l.mu.Unlock()

	f, fileErr := os.OpenFile(l.alertFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if fileErr != nil {
		logger.Error("failed to open alert file %s: %v", l.alertFile, fileErr)
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] [%s] %s\n", timestamp, item, err.Error())
}
