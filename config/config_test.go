package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "clover-api", cfg.AppName)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "db/pg", cfg.DatabaseMigrationFolderPath)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "high", cfg.MergeThreshold)
	assert.InDelta(t, 0.8, cfg.NameSimilarityThreshold, 0.0001)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "b1:9092, b2:9092")
	t.Setenv("MERGE_THRESHOLD", "exact")
	t.Setenv("BATCH_WORKER_COUNT", "8")
	t.Setenv("PRETTY_LOGS", "true")
	t.Setenv("STATS_BUDGET", "2s")

	cfg := Load()

	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "exact", cfg.MergeThreshold)
	assert.Equal(t, 8, cfg.BatchWorkerCount)
	assert.True(t, cfg.PrettyLogs)
	assert.Equal(t, 2*time.Second, cfg.StatsBudget)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("BATCH_WORKER_COUNT", "lots")
	t.Setenv("LOCK_TTL", "soon")

	cfg := Load()

	assert.Equal(t, 4, cfg.BatchWorkerCount)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
}
