package utils

import (
    "errors"
    "fmt"
    "regexp"
    "strings"
    "sync"

    "github.com/go-playground/validator/v10"
)

// phonePattern accepts digits, spaces, +, - and parentheses.
var phonePattern = regexp.MustCompile(`^[0-9+\-\s()]+$`)

var (
    validateOnce sync.Once
    validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
    validateOnce.Do(func() {
        validate = validator.New(validator.WithRequiredStructEnabled())
        _ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
            return phonePattern.MatchString(fl.Field().String())
        })
    })
    return validate
}

// ValidationError is a client-side rejection.  Message is the first
// problem in human-readable form; Fields maps each offending JSON field to
// its problem.
type ValidationError struct {
    Message string
    Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
    var ve *ValidationError
    return errors.As(err, &ve)
}

// Validate checks v's `validate` struct tags.  Any failure is returned as
// *ValidationError and is meant to stop the request before it reaches the
// SEATIFY API.
func Validate(v any) error {
    err := validatorInstance().Struct(v)
    if err == nil {
        return nil
    }
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) {
        return err
    }
    out := &ValidationError{Fields: map[string]string{}}
    for _, fe := range verrs {
        msg := describe(fe)
        out.Fields[jsonName(fe.Field())] = msg
        if out.Message == "" {
            out.Message = msg
        }
    }
    return out
}

func describe(fe validator.FieldError) string {
    field := humanName(fe.Field())
    switch fe.Tag() {
    case "required":
        return "Please fill in " + strings.ToLower(field)
    case "email":
        return "Email address is invalid"
    case "min":
        return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
    case "eqfield":
        return "Password confirmation does not match"
    case "phone":
        return "Phone number is invalid"
    }
    return field + " is invalid"
}

// jsonName maps a struct field to its JSON key: FullName -> fullName,
// OTP -> otp.
func jsonName(f string) string {
    if f == strings.ToUpper(f) {
        return strings.ToLower(f)
    }
    return strings.ToLower(f[:1]) + f[1:]
}

// humanName splits CamelCase: FullName -> Full name.
func humanName(f string) string {
    if f == strings.ToUpper(f) {
        return f
    }
    var b strings.Builder
    for i, r := range f {
        if i > 0 && r >= 'A' && r <= 'Z' {
            b.WriteByte(' ')
            r += 'a' - 'A'
        }
        b.WriteRune(r)
    }
    return b.String()
}
