package types

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

type QueryParams struct {
	Query string `json:"query" validate:"required"`
	Limit int    `json:"limit" validate:"omitempty,gt=0"`
}

type AnalyzeParams struct {
	StudentName string `json:"student_name" validate:"required"`
	Question    string `json:"question"`
}

type RecommendParams struct {
	StudentName string `json:"student_name" validate:"required"`
	Question    string `json:"question"`
}

// LinkParams carries a page ingestion request. MaxDepth nil means the
// caller did not ask for a depth and the configured default applies.
type LinkParams struct {
	Link     string `json:"link" validate:"required,url"`
	MaxDepth *int   `json:"max_depth" validate:"omitempty,gte=0,lte=2"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func validateStruct(s any) map[string]string {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

func (params *QueryParams) Validate() map[string]string {
	if errs := validateStruct(params); errs != nil {
		return errs
	}
	if strings.TrimSpace(params.Query) == "" {
		return map[string]string{"Query": "must not be blank"}
	}
	return nil
}

func (params *AnalyzeParams) Validate() map[string]string {
	return validateStruct(params)
}

func (params *RecommendParams) Validate() map[string]string {
	return validateStruct(params)
}

func (params *LinkParams) Validate() map[string]string {
	return validateStruct(params)
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: http.StatusUnprocessableEntity,
		Errors: errors,
	}
}

type SearchResponse struct {
	Answer    string    `json:"answer"`
	Sources   []Source  `json:"sources"`
	Reranked  bool      `json:"reranked"`
	Timestamp time.Time `json:"timestamp"`
}

type Source struct {
	SourceID string  `json:"source_id"`
	URL      string  `json:"url"`
	Snippet  string  `json:"snippet"`
	Score    float64 `json:"score"`
}

type AnalyzeResponse struct {
	StudentName string    `json:"student_name"`
	Question    string    `json:"question"`
	Analysis    string    `json:"analysis"`
	Sources     []Source  `json:"sources"`
	Timestamp   time.Time `json:"timestamp"`
}

type RecommendResponse struct {
	StudentName     string         `json:"student_name"`
	Question        string         `json:"question"`
	StudentAnalysis string         `json:"student_analysis"`
	Recommendations SearchResponse `json:"course_recommendations"`
}
