package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
)

const (
	DefaultLimit   = 50
	MaxLimit       = 500
	DefaultMaxHops = 4
	MaxHops        = 6
)

var queryValidate *validator.Validate

func init() {
	queryValidate = validator.New()
	_ = queryValidate.RegisterValidation("entityname", validateEntityName)
}

// validateEntityName rejects names that canonicalize to nothing.
func validateEntityName(fl validator.FieldLevel) bool {
	return knowledge.CanonicalKey(fl.Field().String()) != ""
}

type entityParams struct {
	Name  string `validate:"required,max=256,entityname"`
	Limit int    `validate:"gte=1,lte=500"`
}

type pathParams struct {
	From    string `validate:"required,max=256,entityname"`
	To      string `validate:"required,max=256,entityname"`
	MaxHops int    `validate:"gte=1,lte=6"`
}

type limitParams struct {
	Limit int `validate:"gte=1,lte=500"`
}

func normalizeLimit(limit int) int {
	if limit == 0 {
		return DefaultLimit
	}
	return limit
}

// check runs the validator and folds its errors into one QueryError.
func check(op string, params any) error {
	err := queryValidate.Struct(params)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return knowledge.QueryError(op, err.Error())
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, describe(fe))
	}
	return knowledge.QueryError(op, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "entityname":
		return field + " has no usable characters"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
