package internal

import (
	"github.com/jodli/geizhalsbot/helpers"
	"github.com/jodli/geizhalsbot/internal/metrics"
	"github.com/jodli/geizhalsbot/internal/storage"
	"github.com/jodli/geizhalsbot/services/cache"
	"github.com/jodli/geizhalsbot/services/publisher"
)

// Dependencies holds all service dependencies
type Dependencies struct {
	Repository storage.Repository
	Cache      cache.CacheService
	Publisher  publisher.Publisher
	Alerts     helpers.AlertSink
	Metrics    metrics.Recorder
}

// Close releases the dependencies that hold connections
func (d *Dependencies) Close() {
	if d.Publisher != nil {
		d.Publisher.Close()
	}
	if d.Repository != nil {
		d.Repository.Close()
	}
}
