package models

// LectureCode is the schedule type of plain lecture sections. Related
// sections of any other schedule type get that type appended to their LMS
// section name.
const LectureCode = "LEC"

// ScheduleType is a dimension record describing how a section meets.
type ScheduleType struct {
	Code string `json:"code" db:"code"`
	Name string `json:"name" db:"name"`
}

// nonProvisionedScheduleTypes never get course sites and are skipped during
// directory synchronization.
var nonProvisionedScheduleTypes = map[string]struct{}{
	"MED": {}, "DIS": {}, "FLD": {},
	"F01": {}, "F02": {}, "F03": {}, "F04": {},
	"IND": {}, "I01": {}, "I02": {}, "I03": {}, "I04": {},
	"MST": {}, "SRT": {},
}

// IsProvisionedScheduleType reports whether sections of this schedule type
// are eligible for course sites.
func IsProvisionedScheduleType(code string) bool {
	_, skip := nonProvisionedScheduleTypes[code]
	return !skip
}
