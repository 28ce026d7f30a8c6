package objinfo

import "fmt"

// ExtractionError reports that metadata for one node could not be extracted.
type ExtractionError struct {
	ID  string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract node %s: %v", e.ID, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// RouteInstallError reports that the object_info handlers could not be installed.
type RouteInstallError struct {
	Route string
	Err   error
}

func (e *RouteInstallError) Error() string {
	if e.Route == "" {
		return fmt.Sprintf("install object_info routes: %v", e.Err)
	}

	return fmt.Sprintf("install object_info route %s: %v", e.Route, e.Err)
}

func (e *RouteInstallError) Unwrap() error {
	return e.Err
}
