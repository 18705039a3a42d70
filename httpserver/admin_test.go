package httpserver_test

import (
	"net/http"
	"testing"
	"time"

	"cinerate/syncjob"

	"github.com/stretchr/testify/assert"
)

func TestAdminSync_NotConfigured(t *testing.T) {
	server := newTestServer()

	rec := doRequest(t, server, http.MethodPost, "/api/admin/sync", nil, &testAdmin)
	assertStatus(t, rec, http.StatusNotImplemented)

	rec = doRequest(t, server, http.MethodGet, "/api/admin/sync", nil, &testAdmin)
	assertStatus(t, rec, http.StatusNotImplemented)
}

func TestAdminSync_Trigger(t *testing.T) {
	job := new(MockSyncJob)
	server := newTestServer()
	server.SyncJob = job
	job.On("Trigger").Return("run-1", nil).Once()
	job.On("Trigger").Return("", syncjob.ErrRunning).Once()

	rec := doRequest(t, server, http.MethodPost, "/api/admin/sync", nil, &testUser)
	assertStatus(t, rec, http.StatusForbidden)

	rec = doRequest(t, server, http.MethodPost, "/api/admin/sync", nil, &testAdmin)
	assertStatus(t, rec, http.StatusAccepted)
	var got map[string]string
	decodeResult(t, rec, &got)
	assert.Equal(t, "run-1", got["run_id"])

	rec = doRequest(t, server, http.MethodPost, "/api/admin/sync", nil, &testAdmin)
	assertStatus(t, rec, http.StatusConflict)
	job.AssertExpectations(t)
}

func TestAdminSync_Status(t *testing.T) {
	job := new(MockSyncJob)
	server := newTestServer()
	server.SyncJob = job

	finished := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	report := syncjob.Report{
		RunID:      "run-1",
		Result:     "partial",
		Imported:   4,
		Failed:     1,
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
	}
	job.On("Running").Return(false).Once()
	job.On("LastReport").Return(syncjob.Report{}, false).Once()
	job.On("Running").Return(true).Once()
	job.On("LastReport").Return(report, true).Once()

	rec := doRequest(t, server, http.MethodGet, "/api/admin/sync", nil, &testAdmin)
	assertStatus(t, rec, http.StatusOK)
	var first struct {
		Running bool            `json:"running"`
		LastRun *syncjob.Report `json:"last_run"`
	}
	decodeResult(t, rec, &first)
	assert.False(t, first.Running)
	assert.Nil(t, first.LastRun)

	rec = doRequest(t, server, http.MethodGet, "/api/admin/sync", nil, &testAdmin)
	assertStatus(t, rec, http.StatusOK)
	var second struct {
		Running bool            `json:"running"`
		LastRun *syncjob.Report `json:"last_run"`
	}
	decodeResult(t, rec, &second)
	assert.True(t, second.Running)
	if assert.NotNil(t, second.LastRun) {
		assert.Equal(t, report, *second.LastRun)
	}
	job.AssertExpectations(t)
}
