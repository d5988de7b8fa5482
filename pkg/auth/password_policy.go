package auth

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/tendant/simple-verify/internal/config"
	"github.com/tendant/simple-verify/pkg/domain"
)

// DefaultMinPasswordLength applies when the configured minimum is not positive.
const DefaultMinPasswordLength = 8

type charClasses struct {
	upper, lower, digit, special bool
}

func classify(password string) charClasses {
	var c charClasses
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			c.upper = true
		case unicode.IsLower(r):
			c.lower = true
		case unicode.IsDigit(r):
			c.digit = true
		case !unicode.IsLetter(r) && !unicode.IsSpace(r):
			c.special = true
		}
	}
	return c
}

type classRule struct {
	met     func(charClasses) bool
	message string
}

// PasswordPolicy checks registration passwords against PasswordPolicyConfig.
type PasswordPolicy struct {
	minLength int
	rules     []classRule
}

// NewPasswordPolicy compiles cfg into the rules checked at registration.
func NewPasswordPolicy(cfg config.PasswordPolicyConfig) *PasswordPolicy {
	p := &PasswordPolicy{minLength: cfg.MinLength}
	if p.minLength <= 0 {
		p.minLength = DefaultMinPasswordLength
	}

	add := func(enabled bool, met func(charClasses) bool, message string) {
		if enabled {
			p.rules = append(p.rules, classRule{met: met, message: message})
		}
	}
	add(cfg.RequireUppercase, func(c charClasses) bool { return c.upper }, "Password must contain an uppercase letter")
	add(cfg.RequireLowercase, func(c charClasses) bool { return c.lower }, "Password must contain a lowercase letter")
	add(cfg.RequireNumber, func(c charClasses) bool { return c.digit }, "Password must contain a number")
	add(cfg.RequireSpecial, func(c charClasses) bool { return c.special }, "Password must contain a special character")
	return p
}

// Validate returns a *domain.ValidationError for the first rule password breaks.
// Length is counted in characters, not bytes.
func (p *PasswordPolicy) Validate(password string) error {
	if utf8.RuneCountInString(password) < p.minLength {
		return domain.NewValidationError(fmt.Sprintf("Password must be at least %d characters", p.minLength))
	}
	if len(p.rules) == 0 {
		return nil
	}

	classes := classify(password)
	for _, rule := range p.rules {
		if !rule.met(classes) {
			return domain.NewValidationError(rule.message)
		}
	}
	return nil
}
