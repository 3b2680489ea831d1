package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackup struct {
	calledWith string
}

func (s *stubBackup) Run(ctx context.Context, dbPath string) error {
	s.calledWith = dbPath
	return nil
}

func TestBackupJob_RunDelegatesToBackupService(t *testing.T) {
	stub := &stubBackup{}
	job := &backupJob{backup: stub, dbPath: "/tmp/dsa.db"}

	require.NoError(t, job.Run())
	assert.Equal(t, "/tmp/dsa.db", stub.calledWith)
	assert.Equal(t, "database-backup", job.Name())
}

func TestResolveFlags_ServeAliases(t *testing.T) {
	serveFlag, _ := resolveFlags(false, false, true, false, false)
	assert.True(t, serveFlag, "--webui must alias --serve")

	serveFlag, _ = resolveFlags(false, false, false, true, false)
	assert.True(t, serveFlag, "--webui-only must alias --serve-only")
}

func TestResolveFlags_ServeOnlySuppressesSchedule(t *testing.T) {
	_, scheduleFlag := resolveFlags(false, true, false, false, true)
	assert.False(t, scheduleFlag, "--serve-only must override a concurrently-set --schedule")
}

func TestResolveFlags_ScheduleAloneRuns(t *testing.T) {
	serveFlag, scheduleFlag := resolveFlags(false, false, false, false, true)
	assert.False(t, serveFlag)
	assert.True(t, scheduleFlag)
}

func TestResolveFlags_NeitherFlagSet(t *testing.T) {
	serveFlag, scheduleFlag := resolveFlags(false, false, false, false, false)
	assert.False(t, serveFlag)
	assert.False(t, scheduleFlag)
}
