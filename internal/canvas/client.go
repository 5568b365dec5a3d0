package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound signals that the LMS has no record matching the lookup.
var ErrNotFound = errors.New("canvas: not found")

// APIError is a non-2xx response from the LMS.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("canvas: unexpected status %d: %s", e.StatusCode, e.Body)
}

// API is the contract the provisioning pipeline requires from the LMS.
type API interface {
	FindUserByLogin(ctx context.Context, loginID string) (*User, error)
	CreateUser(ctx context.Context, accountID int64, user NewUser) (*User, error)

	CreateCourse(ctx context.Context, accountID int64, payload CoursePayload) (*Course, error)
	UpdateCourse(ctx context.Context, sisCourseID string, payload CoursePayload) (*Course, error)
	GetCourseBySISID(ctx context.Context, sisCourseID string) (*Course, error)
	GetCourse(ctx context.Context, courseID int64) (*Course, error)

	ListSections(ctx context.Context, courseID int64) ([]Section, error)
	CreateSection(ctx context.Context, courseID int64, name, sisSectionID string) (*Section, error)
	Enroll(ctx context.Context, courseID, userID int64, enrollmentType string, opts EnrollmentOptions) error

	StartContentCopy(ctx context.Context, courseID, sourceCourseID int64) (*Migration, error)
	GetMigrationStatus(ctx context.Context, migration *Migration) (MigrationStatus, error)

	ListCalendarEvents(ctx context.Context, courseID int64) ([]CalendarEvent, error)
	DeleteCalendarEvent(ctx context.Context, eventID int64, reason string) error
	ListAnnouncements(ctx context.Context, courseID int64) ([]Announcement, error)
	DeleteAnnouncement(ctx context.Context, courseID, announcementID int64) error
	SetTabVisibility(ctx context.Context, courseID int64, tabID string, visible bool) error

	ListEnrollmentTerms(ctx context.Context, accountID int64) ([]EnrollmentTerm, error)
	ListSubAccounts(ctx context.Context, accountID int64, recursive bool) ([]Account, error)
}

// Client is an HTTP implementation of the LMS REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ API = (*Client)(nil)

// NewClient creates a Client for the given LMS base URL and access token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, out interface{}) error {
	endpoint := path
	if !strings.HasPrefix(path, "http") {
		endpoint = c.baseURL + "/api/v1" + path
	}

	var body io.Reader
	if method == http.MethodGet || method == http.MethodDelete {
		if len(params) > 0 {
			endpoint = endpoint + "?" + params.Encode()
		}
	} else if params != nil {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("canvas: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("canvas: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("canvas: decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// FindUserByLogin looks an LMS user up by institutional login key.
func (c *Client) FindUserByLogin(ctx context.Context, loginID string) (*User, error) {
	var user User
	path := "/users/sis_login_id:" + url.PathEscape(loginID)
	if err := c.do(ctx, http.MethodGet, path, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser mints a new LMS account under the given root account.
func (c *Client) CreateUser(ctx context.Context, accountID int64, user NewUser) (*User, error) {
	params := url.Values{}
	params.Set("pseudonym[unique_id]", user.LoginID)
	if user.SISUserID != "" {
		params.Set("pseudonym[sis_user_id]", user.SISUserID)
	}
	params.Set("user[name]", user.Name)
	if user.Email != "" {
		params.Set("communication_channel[type]", "email")
		params.Set("communication_channel[address]", user.Email)
	}

	var created User
	path := fmt.Sprintf("/accounts/%d/users", accountID)
	if err := c.do(ctx, http.MethodPost, path, params, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func coursePayloadParams(payload CoursePayload) url.Values {
	params := url.Values{}
	params.Set("course[name]", payload.Name)
	params.Set("course[sis_course_id]", payload.SISCourseID)
	params.Set("course[course_code]", payload.CourseCode)
	if payload.TermID != nil {
		params.Set("course[term_id]", strconv.FormatInt(*payload.TermID, 10))
	}
	if payload.StorageQuotaMB > 0 {
		params.Set("course[storage_quota_mb]", strconv.Itoa(payload.StorageQuotaMB))
	}
	return params
}

// CreateCourse creates a course site under the given sub-account.
func (c *Client) CreateCourse(ctx context.Context, accountID int64, payload CoursePayload) (*Course, error) {
	var course Course
	path := fmt.Sprintf("/accounts/%d/courses", accountID)
	if err := c.do(ctx, http.MethodPost, path, coursePayloadParams(payload), &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// UpdateCourse updates an existing course site addressed by its SIS course id.
func (c *Client) UpdateCourse(ctx context.Context, sisCourseID string, payload CoursePayload) (*Course, error) {
	path := "/courses/sis_course_id:" + url.PathEscape(sisCourseID)
	if err := c.do(ctx, http.MethodPut, path, coursePayloadParams(payload), nil); err != nil {
		return nil, err
	}
	return c.GetCourseBySISID(ctx, sisCourseID)
}

// GetCourseBySISID fetches a course site by its SIS course id.
func (c *Client) GetCourseBySISID(ctx context.Context, sisCourseID string) (*Course, error) {
	var course Course
	path := "/courses/sis_course_id:" + url.PathEscape(sisCourseID)
	if err := c.do(ctx, http.MethodGet, path, nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// GetCourse fetches a course site by its LMS id.
func (c *Client) GetCourse(ctx context.Context, courseID int64) (*Course, error) {
	var course Course
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/courses/%d", courseID), nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListSections lists the course-section records of a course site.
func (c *Client) ListSections(ctx context.Context, courseID int64) ([]Section, error) {
	params := url.Values{}
	params.Set("per_page", "100")
	var sections []Section
	path := fmt.Sprintf("/courses/%d/sections", courseID)
	if err := c.do(ctx, http.MethodGet, path, params, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// CreateSection adds a course-section record to a course site. SIS
// reactivation is enabled so a previously deleted section id can be reused.
func (c *Client) CreateSection(ctx context.Context, courseID int64, name, sisSectionID string) (*Section, error) {
	params := url.Values{}
	params.Set("course_section[name]", name)
	params.Set("course_section[sis_section_id]", sisSectionID)
	params.Set("enable_sis_reactivation", "true")

	var section Section
	path := fmt.Sprintf("/courses/%d/sections", courseID)
	if err := c.do(ctx, http.MethodPost, path, params, &section); err != nil {
		return nil, err
	}
	return &section, nil
}

// Enroll adds a user to a course site with the given enrollment type.
func (c *Client) Enroll(ctx context.Context, courseID, userID int64, enrollmentType string, opts EnrollmentOptions) error {
	params := url.Values{}
	params.Set("enrollment[user_id]", strconv.FormatInt(userID, 10))
	params.Set("enrollment[type]", enrollmentType)
	if opts.State != "" {
		params.Set("enrollment[enrollment_state]", opts.State)
	}
	if opts.SectionID != 0 {
		params.Set("enrollment[course_section_id]", strconv.FormatInt(opts.SectionID, 10))
	}
	if opts.RoleID != 0 {
		params.Set("enrollment[role_id]", strconv.FormatInt(opts.RoleID, 10))
	}

	path := fmt.Sprintf("/courses/%d/enrollments", courseID)
	return c.do(ctx, http.MethodPost, path, params, nil)
}

// StartContentCopy kicks off a course-copy content migration.
func (c *Client) StartContentCopy(ctx context.Context, courseID, sourceCourseID int64) (*Migration, error) {
	params := url.Values{}
	params.Set("migration_type", "course_copy_importer")
	params.Set("settings[source_course_id]", strconv.FormatInt(sourceCourseID, 10))

	var migration Migration
	path := fmt.Sprintf("/courses/%d/content_migrations", courseID)
	if err := c.do(ctx, http.MethodPost, path, params, &migration); err != nil {
		return nil, err
	}
	return &migration, nil
}

// GetMigrationStatus polls the progress endpoint of a content migration.
func (c *Client) GetMigrationStatus(ctx context.Context, migration *Migration) (MigrationStatus, error) {
	var progress struct {
		WorkflowState string `json:"workflow_state"`
	}
	if err := c.do(ctx, http.MethodGet, migration.ProgressURL, nil, &progress); err != nil {
		return "", err
	}
	return MigrationStatus(progress.WorkflowState), nil
}

// ListCalendarEvents lists all calendar events in a course site's context.
func (c *Client) ListCalendarEvents(ctx context.Context, courseID int64) ([]CalendarEvent, error) {
	params := url.Values{}
	params.Set("context_codes[]", fmt.Sprintf("course_%d", courseID))
	params.Set("all_events", "true")
	params.Set("per_page", "100")

	var events []CalendarEvent
	if err := c.do(ctx, http.MethodGet, "/calendar_events", params, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// DeleteCalendarEvent cancels a calendar event with the given reason.
func (c *Client) DeleteCalendarEvent(ctx context.Context, eventID int64, reason string) error {
	params := url.Values{}
	if reason != "" {
		params.Set("cancel_reason", reason)
	}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/calendar_events/%d", eventID), params, nil)
}

// ListAnnouncements lists the announcement-type topics of a course site.
func (c *Client) ListAnnouncements(ctx context.Context, courseID int64) ([]Announcement, error) {
	params := url.Values{}
	params.Set("only_announcements", "true")
	params.Set("per_page", "100")

	var announcements []Announcement
	path := fmt.Sprintf("/courses/%d/discussion_topics", courseID)
	if err := c.do(ctx, http.MethodGet, path, params, &announcements); err != nil {
		return nil, err
	}
	return announcements, nil
}

// DeleteAnnouncement removes an announcement from a course site.
func (c *Client) DeleteAnnouncement(ctx context.Context, courseID, announcementID int64) error {
	path := fmt.Sprintf("/courses/%d/discussion_topics/%d", courseID, announcementID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// SetTabVisibility shows or hides a navigation tab on a course site.
func (c *Client) SetTabVisibility(ctx context.Context, courseID int64, tabID string, visible bool) error {
	params := url.Values{}
	params.Set("hidden", strconv.FormatBool(!visible))
	path := fmt.Sprintf("/courses/%d/tabs/%s", courseID, url.PathEscape(tabID))
	return c.do(ctx, http.MethodPut, path, params, nil)
}

// ListEnrollmentTerms lists the enrollment terms of an account.
func (c *Client) ListEnrollmentTerms(ctx context.Context, accountID int64) ([]EnrollmentTerm, error) {
	var response struct {
		EnrollmentTerms []EnrollmentTerm `json:"enrollment_terms"`
	}
	params := url.Values{}
	params.Set("per_page", "100")
	path := fmt.Sprintf("/accounts/%d/terms", accountID)
	if err := c.do(ctx, http.MethodGet, path, params, &response); err != nil {
		return nil, err
	}
	return response.EnrollmentTerms, nil
}

// ListSubAccounts lists the sub-accounts of an account.
func (c *Client) ListSubAccounts(ctx context.Context, accountID int64, recursive bool) ([]Account, error) {
	params := url.Values{}
	params.Set("recursive", strconv.FormatBool(recursive))
	params.Set("per_page", "100")

	var accounts []Account
	path := fmt.Sprintf("/accounts/%d/sub_accounts", accountID)
	if err := c.do(ctx, http.MethodGet, path, params, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}
