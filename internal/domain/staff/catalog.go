package staff

import "github.com/google/uuid"

// catalogRows builds the full Resource x AccessType cross-product. IDs are
// generated per call; the unique (resource, access_type) constraint keeps
// the stored catalog to exactly one row per pair regardless of how many
// callers race the initial population.
func catalogRows() []Permission {
	rows := make([]Permission, 0, len(Resources())*len(AccessTypes()))
	for _, res := range Resources() {
		for _, at := range AccessTypes() {
			rows = append(rows, Permission{
				ID:          uuid.New(),
				Resource:    res,
				AccessType:  at,
				Description: describePermission(res, at),
			})
		}
	}
	return rows
}

func describePermission(res Resource, at AccessType) string {
	switch at {
	case AccessWrite:
		return "Create and edit " + string(res)
	case AccessAdmin:
		return "Full control over " + string(res)
	default:
		return "View " + string(res)
	}
}
