package dto

// EnrollmentEntry is one manually specified enrollment on a submission
type EnrollmentEntry struct {
	Username string `json:"username" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// SubmitRequestRequest carries a course-site request submission
type SubmitRequestRequest struct {
	SectionCode            string            `json:"sectionCode" binding:"required"`
	ProxyRequester         string            `json:"proxyRequester"`
	TitleOverride          string            `json:"titleOverride"`
	CopyFromCourse         *int64            `json:"copyFromCourse"`
	Reserves               bool              `json:"reserves"`
	LMSOnline              bool              `json:"lmsOnline"`
	ExcludeAnnouncements   bool              `json:"excludeAnnouncements"`
	AdditionalInstructions string            `json:"additionalInstructions"`
	IncludedSections       []string          `json:"includedSections"`
	AdditionalEnrollments  []EnrollmentEntry `json:"additionalEnrollments"`
}

// AdminUpdateRequestRequest carries an administrative edit of a request
type AdminUpdateRequestRequest struct {
	TitleOverride          string `json:"titleOverride"`
	CopyFromCourse         *int64 `json:"copyFromCourse"`
	Reserves               bool   `json:"reserves"`
	LMSOnline              bool   `json:"lmsOnline"`
	ExcludeAnnouncements   bool   `json:"excludeAnnouncements"`
	AdditionalInstructions string `json:"additionalInstructions"`
	AdminInstructions      string `json:"adminInstructions"`
	Status                 string `json:"status" binding:"required"`
}

// CreateAutoAddRequest carries a standing enrollment policy
type CreateAutoAddRequest struct {
	SchoolCode  string `json:"schoolCode" binding:"required"`
	SubjectCode string `json:"subjectCode" binding:"required"`
	Username    string `json:"username" binding:"required"`
	Role        string `json:"role" binding:"required"`
}

// CanvasSiteResponse describes an already-provisioned site
type CanvasSiteResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
