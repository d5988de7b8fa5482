package auth

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/tendant/simple-verify/internal/config"
	"github.com/tendant/simple-verify/pkg/domain"
)

const maxEmailLength = 254

var disposableDomains = map[string]struct{}{
	"tempmail.com":      {},
	"10minutemail.com":  {},
	"guerrillamail.com": {},
	"mailinator.com":    {},
	"throwaway.email":   {},
}

// strictEmailPattern rejects display names, quoted local parts and IP literals that net/mail accepts.
var strictEmailPattern = regexp.MustCompile(`^[A-Za-z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?)+$`)

// EmailRules validates addresses submitted at registration.
type EmailRules struct {
	strict          bool
	blockDisposable bool
}

// NewEmailRules reads the email switches of cfg.
func NewEmailRules(cfg config.ValidationConfig) EmailRules {
	return EmailRules{
		strict:          cfg.StrictEmailValidation,
		blockDisposable: cfg.BlockDisposableEmail,
	}
}

// Validate returns a *domain.ValidationError when email cannot be registered.
// email is expected to be normalized already.
func (r EmailRules) Validate(email string) error {
	if len(email) > maxEmailLength {
		return domain.NewValidationError("Email address is too long")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return domain.NewValidationError("Invalid email address")
	}
	if r.strict && !strictEmailPattern.MatchString(email) {
		return domain.NewValidationError("Invalid email address")
	}

	if r.blockDisposable {
		_, host, _ := strings.Cut(email, "@")
		if _, ok := disposableDomains[strings.ToLower(host)]; ok {
			return domain.NewValidationError("Disposable email addresses are not allowed")
		}
	}
	return nil
}

// NormalizeEmail trims surrounding whitespace. Case is preserved: addresses are
// stored and looked up exactly as entered.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
