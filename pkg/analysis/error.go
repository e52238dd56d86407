package analysis

import "errors"

// ErrAnalysis indicates an analyzer could not produce candidates.
var ErrAnalysis = errors.New("analysis failed")
