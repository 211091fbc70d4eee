package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"flahasoil/internal/config"
)

func TestRefreshConfigCarriesSchedulerSettings(t *testing.T) {
	cfg := config.DefaultConfig().Scheduler
	cfg.MaxConcurrent = 9
	cfg.LocationLimit = 50

	rc := refreshConfig(cfg)
	assert.Equal(t, 9, rc.MaxConcurrent)
	assert.Equal(t, 50, rc.LocationLimit)
	assert.Equal(t, cfg.ET0RefreshCron, rc.Schedule)
}
