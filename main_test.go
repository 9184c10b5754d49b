package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jodli/geizhalsbot/config"

	"github.com/stretchr/testify/assert"
)

func TestBuildService_BadSelectorsOpenNothing(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		DatabasePath:  filepath.Join(dir, "geizhals.db"),
		SelectorsFile: filepath.Join(dir, "missing.yaml"),
		AlertFile:     filepath.Join(dir, "alerts.log"),
	}

	deps, svc, err := buildService(context.Background(), cfg)
	assert.Error(t, err)
	assert.Nil(t, deps)
	assert.Nil(t, svc)

	_, err = os.Stat(cfg.DatabasePath)
	assert.True(t, os.IsNotExist(err), "database must not be opened")
}
