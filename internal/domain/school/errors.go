package school

import "errors"

var (
	ErrSchoolNotFound = errors.New("school not found")
)
