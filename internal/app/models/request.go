package models

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a provisioning request.
type Status string

const (
	StatusSubmitted Status = "Submitted"
	StatusApproved  Status = "Approved"
	StatusLocked    Status = "Locked"
	StatusCanceled  Status = "Canceled"
	StatusInProcess Status = "In Process"
	StatusError     Status = "Error"
	StatusCompleted Status = "Completed"
)

// ParseStatus validates a status string.
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusSubmitted, StatusApproved, StatusLocked, StatusCanceled,
		StatusInProcess, StatusError, StatusCompleted:
		return Status(value), nil
	}
	return "", fmt.Errorf("unknown request status %q", value)
}

// AdminEditable reports whether the status may be set through the admin
// detail view. In Process and Error are reachable only by the pipeline.
func (s Status) AdminEditable() bool {
	switch s {
	case StatusSubmitted, StatusApproved, StatusLocked, StatusCanceled, StatusCompleted:
		return true
	}
	return false
}

// Event is a lifecycle trigger applied to a request's status.
type Event string

const (
	EventApprove  Event = "approve"
	EventLock     Event = "lock"
	EventCancel   Event = "cancel"
	EventStart    Event = "start"
	EventComplete Event = "complete"
	EventFail     Event = "fail"
)

type statusEvent struct {
	status Status
	event  Event
}

// transitions is the closed lifecycle table. Start is accepted from Error
// so a failed attempt can be re-triggered.
var transitions = map[statusEvent]Status{
	{StatusSubmitted, EventApprove}:  StatusApproved,
	{StatusSubmitted, EventLock}:     StatusLocked,
	{StatusSubmitted, EventCancel}:   StatusCanceled,
	{StatusApproved, EventLock}:      StatusLocked,
	{StatusApproved, EventCancel}:    StatusCanceled,
	{StatusApproved, EventStart}:     StatusInProcess,
	{StatusError, EventStart}:        StatusInProcess,
	{StatusInProcess, EventComplete}: StatusCompleted,
	{StatusInProcess, EventFail}:     StatusError,
}

// Next returns the status reached by applying event to the current status,
// or false when the lifecycle table has no such transition.
func (s Status) Next(event Event) (Status, bool) {
	next, ok := transitions[statusEvent{s, event}]
	return next, ok
}

// Request is a one-to-one provisioning intent attached to a section. The
// section code is the primary key, which enforces at most one request per
// section.
type Request struct {
	SectionCode            string    `json:"sectionCode" db:"section_code"`
	RequesterID            int64     `json:"requesterId" db:"requester_id"`
	ProxyRequesterID       *int64    `json:"proxyRequesterId,omitempty" db:"proxy_requester_id"`
	TitleOverride          string    `json:"titleOverride" db:"title_override"`
	CopyFromCourse         *int64    `json:"copyFromCourse,omitempty" db:"copy_from_course"`
	Reserves               bool      `json:"reserves" db:"reserves"`
	LMSOnline              bool      `json:"lmsOnline" db:"lms_online"`
	ExcludeAnnouncements   bool      `json:"excludeAnnouncements" db:"exclude_announcements"`
	AdditionalInstructions string    `json:"additionalInstructions" db:"additional_instructions"`
	AdminInstructions      string    `json:"adminInstructions" db:"admin_instructions"`
	ProcessNotes           string    `json:"processNotes" db:"process_notes"`
	Status                 Status    `json:"status" db:"status"`
	CreatedAt              time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt              time.Time `json:"updatedAt" db:"updated_at"`

	Section          *Section            `json:"section,omitempty"`
	Requester        *User               `json:"requester,omitempty"`
	ProxyRequester   *User               `json:"proxyRequester,omitempty"`
	IncludedSections []Section           `json:"includedSections,omitempty"`
	Enrollments      []SectionEnrollment `json:"enrollments,omitempty"`

	// CopyFromCourseDisplay is the rendered "Name (id)" of the copy source,
	// filled on detail reads.
	CopyFromCourseDisplay string `json:"copyFromCourseDisplay,omitempty" db:"-"`
}

// OtherRequester returns the last name of whichever of requester and proxy
// requester is not the given user, for display in request lists.
func (r *Request) OtherRequester(userID int64) string {
	for _, candidate := range []*User{r.Requester, r.ProxyRequester} {
		if candidate != nil && candidate.ID != userID {
			return candidate.LastName
		}
	}
	return ""
}

// RecordProcessNote stamps a diagnostic message into the request's process
// notes.
func (r *Request) RecordProcessNote(now time.Time, message string) {
	r.ProcessNotes = fmt.Sprintf("%s: %s", now.Format(time.RFC3339), message)
}
