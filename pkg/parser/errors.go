package parser

import "errors"

// ErrReportNotFound is returned when the expected .rwo file is missing.
var ErrReportNotFound = errors.New("parser: raw report not found")
