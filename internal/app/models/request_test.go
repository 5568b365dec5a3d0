package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from  Status
		event Event
		to    Status
		ok    bool
	}{
		{StatusSubmitted, EventApprove, StatusApproved, true},
		{StatusSubmitted, EventLock, StatusLocked, true},
		{StatusSubmitted, EventCancel, StatusCanceled, true},
		{StatusApproved, EventStart, StatusInProcess, true},
		{StatusInProcess, EventComplete, StatusCompleted, true},
		{StatusInProcess, EventFail, StatusError, true},
		{StatusError, EventStart, StatusInProcess, true},
		{StatusSubmitted, EventStart, "", false},
		{StatusLocked, EventStart, "", false},
		{StatusCanceled, EventApprove, "", false},
		{StatusCompleted, EventStart, "", false},
	}

	for _, tt := range tests {
		next, ok := tt.from.Next(tt.event)
		assert.Equal(t, tt.ok, ok, "%s + %s", tt.from, tt.event)
		if tt.ok {
			assert.Equal(t, tt.to, next, "%s + %s", tt.from, tt.event)
		}
	}
}

func TestStatusAdminEditable(t *testing.T) {
	assert.True(t, StatusSubmitted.AdminEditable())
	assert.True(t, StatusApproved.AdminEditable())
	assert.True(t, StatusLocked.AdminEditable())
	assert.True(t, StatusCanceled.AdminEditable())
	assert.True(t, StatusCompleted.AdminEditable())
	assert.False(t, StatusInProcess.AdminEditable())
	assert.False(t, StatusError.AdminEditable())
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus("In Process")
	require.NoError(t, err)
	assert.Equal(t, StatusInProcess, status)

	_, err = ParseStatus("Pending")
	assert.Error(t, err)
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("ta")
	require.NoError(t, err)
	assert.Equal(t, RoleTA, role)

	role, err = ParseRole("TeacherEnrollment")
	require.NoError(t, err)
	assert.Equal(t, RoleInstructor, role)

	_, err = ParseRole("observer")
	assert.Error(t, err)
}

func TestRoleCanvasType(t *testing.T) {
	assert.Equal(t, "TaEnrollment", RoleTA.CanvasType())
	assert.Equal(t, "TeacherEnrollment", RoleInstructor.CanvasType())
	assert.Equal(t, "DesignerEnrollment", RoleDesigner.CanvasType())
}

func TestRoleUsesLibrarianRole(t *testing.T) {
	assert.True(t, RoleDesigner.UsesLibrarianRole())
	assert.False(t, RoleTA.UsesLibrarianRole())
	assert.False(t, RoleInstructor.UsesLibrarianRole())
}

func TestOtherRequester(t *testing.T) {
	requester := &User{ID: 1, LastName: "Lovelace"}
	proxy := &User{ID: 2, LastName: "Turing"}
	request := &Request{Requester: requester, ProxyRequester: proxy}

	assert.Equal(t, "Turing", request.OtherRequester(1))
	assert.Equal(t, "Lovelace", request.OtherRequester(2))

	request.ProxyRequester = nil
	assert.Equal(t, "", request.OtherRequester(1))
}

func TestRecordProcessNote(t *testing.T) {
	request := &Request{}
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	request.RecordProcessNote(now, "account creation failed: 502")

	assert.Equal(t, "2025-03-14T09:26:53Z: account creation failed: 502", request.ProcessNotes)
}
