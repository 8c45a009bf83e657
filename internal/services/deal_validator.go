package services

import (
	"fmt"
	"strings"

	"dealdesk/internal/models"
)

type ValidationCode string

const (
	CodeNameRequired ValidationCode = "name_required"
	CodeInvalidStage ValidationCode = "invalid_stage"
)

// ValidationError is a user input problem. Its message is safe to show as is.
type ValidationError struct {
	Code    ValidationCode `json:"code"`
	Message string         `json:"error"`
	Allowed []models.Stage `json:"allowed,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.Allowed) == 0 {
		return e.Message
	}
	names := make([]string, 0, len(e.Allowed))
	for _, s := range e.Allowed {
		names = append(names, string(s))
	}
	return fmt.Sprintf("%s: must be one of %s", e.Message, strings.Join(names, ", "))
}

// ValidationResult is either normalized fields or the first problem found.
type ValidationResult struct {
	Fields models.DealFields
	Err    *ValidationError
}

func (r ValidationResult) OK() bool {
	return r.Err == nil
}

// ValidateDeal checks the name before the stage, so a candidate with both
// problems reports the missing name.
func ValidateDeal(c models.DealCandidate) ValidationResult {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ValidationResult{Err: &ValidationError{
			Code:    CodeNameRequired,
			Message: "name required",
		}}
	}
	stage := models.Stage(c.Stage)
	if !stage.Valid() {
		return ValidationResult{Err: &ValidationError{
			Code:    CodeInvalidStage,
			Message: "invalid stage",
			Allowed: models.Stages(),
		}}
	}
	return ValidationResult{Fields: models.DealFields{Name: name, Stage: stage}}
}
