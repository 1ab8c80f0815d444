package domain

import "errors"

// ErrInvalidSubmission indicates that a raw submission is missing its payload or kind.
var ErrInvalidSubmission = errors.New("invalid submission")

// ErrInvalidMarkerLevel indicates a marker value outside the closed 10/15/20 set.
var ErrInvalidMarkerLevel = errors.New("invalid marker level")

// ErrInvalidRubric indicates that a rubric score violates its structural invariants.
var ErrInvalidRubric = errors.New("invalid rubric score")

// ErrInvalidEvaluationRequest indicates that an evaluation request cannot be processed.
var ErrInvalidEvaluationRequest = errors.New("invalid evaluation request")
