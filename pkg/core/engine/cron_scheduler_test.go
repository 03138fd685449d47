package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/dagsched/pkg/config"
	"github.com/LENAX/dagsched/pkg/core/events"
	"github.com/LENAX/dagsched/pkg/storage"
)

func TestCronScheduler_RegisterEntry(t *testing.T) {
	eng, err := NewEngine(config.DefaultConfig())
	require.NoError(t, err)
	cs := eng.CronScheduler()

	entry := config.ScheduleEntry{Name: "nightly", Cron: "0 0 2 * * *", Taskset: "ref.yaml", Processors: 1}
	require.NoError(t, cs.RegisterEntry(entry))
	assert.Error(t, cs.RegisterEntry(entry), "重复注册")

	assert.Error(t, cs.RegisterEntry(config.ScheduleEntry{Name: "bad", Cron: "every day", Taskset: "x.yaml"}))
	assert.Error(t, cs.RegisterEntry(config.ScheduleEntry{Name: "no-file", Cron: "@hourly"}))
	assert.Error(t, cs.RegisterEntry(config.ScheduleEntry{Cron: "@hourly", Taskset: "x.yaml"}))

	require.NoError(t, cs.RegisterEntry(config.ScheduleEntry{Name: "hourly", Cron: "@hourly", Taskset: "ref.yaml"}))
	assert.Equal(t, []string{"hourly", "nightly"}, cs.GetRegisteredEntries())

	require.NoError(t, cs.UnregisterEntry("nightly"))
	assert.Error(t, cs.UnregisterEntry("nightly"))
	assert.Equal(t, []string{"hourly"}, cs.GetRegisteredEntries())
}

func TestCronScheduler_Trigger(t *testing.T) {
	path := writeTaskset(t, t.TempDir(), "ref.yaml", referenceYAML)
	repo := openRepo(t)
	pub := &recordingPublisher{}
	eng, err := NewEngine(config.DefaultConfig(), WithRepository(repo), WithPublisher(pub))
	require.NoError(t, err)

	eng.CronScheduler().Trigger(config.ScheduleEntry{Name: "ref", Cron: "@hourly", Taskset: path, Processors: 1})

	types := pub.types()
	require.NotEmpty(t, types)
	assert.Equal(t, events.EventScheduleTriggered, types[0])
	assert.Equal(t, events.EventAnalysisCompleted, types[len(types)-1])

	runs, err := eng.ListRuns(context.Background(), storage.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "schedule:ref", runs[0].Source)
}

func TestCronScheduler_TriggerMissingFile(t *testing.T) {
	pub := &recordingPublisher{}
	eng, err := NewEngine(config.DefaultConfig(), WithPublisher(pub))
	require.NoError(t, err)

	eng.CronScheduler().Trigger(config.ScheduleEntry{Name: "gone", Taskset: "/nonexistent/ref.yaml"})
	assert.Equal(t, []events.EventType{events.EventScheduleTriggered, events.EventAnalysisFailed}, pub.types())
}

func TestEngine_StartRegistersSchedule(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DagSched.Schedule.Enabled = true
	cfg.DagSched.Schedule.Entries = []config.ScheduleEntry{
		{Name: "a", Cron: "@daily", Taskset: "a.yaml", Processors: 1},
	}
	eng, err := NewEngine(cfg)
	require.NoError(t, err)

	require.NoError(t, eng.Start(context.Background()))
	assert.Equal(t, []string{"a"}, eng.CronScheduler().GetRegisteredEntries())
	eng.Stop()
}
