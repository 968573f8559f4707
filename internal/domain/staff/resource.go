package staff

import "strings"

// Resource is a functional area of the dashboard that a permission is scoped
// to. The enumeration is closed; additions are append-only.
type Resource string

const (
	ResourceDashboard    Resource = "dashboard"
	ResourceAnalytics    Resource = "analytics"
	ResourceStudents     Resource = "students"
	ResourceStaff        Resource = "staff"
	ResourceClasses      Resource = "classes"
	ResourceSubjects     Resource = "subjects"
	ResourceTimetables   Resource = "timetables"
	ResourceCalendar     Resource = "calendar"
	ResourceAdmissions   Resource = "admissions"
	ResourceSessions     Resource = "sessions"
	ResourceEvents       Resource = "events"
	ResourceGrades       Resource = "grades"
	ResourceCurriculum   Resource = "curriculum"
	ResourceLibrary      Resource = "resources"
	ResourceTransfers    Resource = "transfers"
	ResourceIntegrations Resource = "integrations"
)

// AccessType is the level of access granted on a resource. AccessAdmin
// subsumes read and write on the same resource only.
type AccessType string

const (
	AccessRead  AccessType = "read"
	AccessWrite AccessType = "write"
	AccessAdmin AccessType = "admin"
)

// Resources returns every catalog resource in declaration order
func Resources() []Resource {
	return []Resource{
		ResourceDashboard, ResourceAnalytics, ResourceStudents, ResourceStaff,
		ResourceClasses, ResourceSubjects, ResourceTimetables, ResourceCalendar,
		ResourceAdmissions, ResourceSessions, ResourceEvents, ResourceGrades,
		ResourceCurriculum, ResourceLibrary, ResourceTransfers, ResourceIntegrations,
	}
}

// AccessTypes returns every access type
func AccessTypes() []AccessType {
	return []AccessType{AccessRead, AccessWrite, AccessAdmin}
}

// ParseResource maps a string to a catalog Resource; unknown values are
// rejected rather than passed through.
func ParseResource(s string) (Resource, bool) {
	r := Resource(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Resources() {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// ParseAccessType maps a string to an AccessType
func ParseAccessType(s string) (AccessType, bool) {
	t := AccessType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AccessTypes() {
		if t == known {
			return t, true
		}
	}
	return "", false
}
