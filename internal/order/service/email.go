package service

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/fastbillsync/internal/order/domain"
)

type emailValidator struct {
	validate *validator.Validate
}

func NewEmailValidator() domain.EmailValidator {
	return &emailValidator{validate: validator.New()}
}

func (v *emailValidator) ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	return v.validate.Var(email, "required,email") == nil
}
