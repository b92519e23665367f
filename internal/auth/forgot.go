package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/seatify-gateway/internal/apiclient"
	"github.com/iliyamo/seatify-gateway/internal/model"
	"github.com/iliyamo/seatify-gateway/internal/notify"
	"github.com/iliyamo/seatify-gateway/internal/utils"
)

var (
	// ErrPasswordMismatch is returned when the new password and its
	// confirmation differ.
	ErrPasswordMismatch = errors.New("password confirmation does not match")
	// ErrWrongStep is returned when step two is attempted before an OTP
	// was requested.
	ErrWrongStep = errors.New("request an OTP first")
)

// ResetFlow is the two-step forgot-password state.  Step 1 asks for an
// email; step 2 asks for the OTP and the new password.  The OTP and the
// passwords are inputs to Complete and are never stored.
type ResetFlow struct {
	Step  int    `json:"step"`
	Email string `json:"email,omitempty"`
}

// CurrentStep reports the step, treating the zero value as step 1.
func (f ResetFlow) CurrentStep() int {
	if f.Step != 2 {
		return 1
	}
	return 2
}

// Cancel returns the flow to step 1.
func (f *ResetFlow) Cancel() { *f = ResetFlow{Step: 1} }

// ResetInput is what the user types on step 2.
type ResetInput struct {
	OTP             string `json:"otp"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// RequestOTP runs step 1.  On success the flow moves to step 2.
func (s *Service) RequestOTP(ctx context.Context, f *ResetFlow, email string) error {
	email = strings.TrimSpace(email)
	if err := utils.Validate(struct {
		Email string `validate:"required,email"`
	}{email}); err != nil {
		s.Notes.PushError(err.Error())
		return err
	}
	epoch := s.Notes.Epoch()
	msg, err := s.API.ForgotPassword(ctx, email)
	if err != nil {
		s.Notes.Push(epoch, notify.Error, apiclient.MessageOf(err, "Could not send the OTP"))
		return err
	}
	*f = ResetFlow{Step: 2, Email: email}
	if msg == "" {
		msg = "An OTP has been sent to your email"
	}
	s.Notes.Push(epoch, notify.Success, msg)
	return nil
}

// CompleteReset runs step 2.  A confirmation mismatch is rejected locally.
// On success the flow is reset and the returned path is the login page.
func (s *Service) CompleteReset(ctx context.Context, f *ResetFlow, in ResetInput) (string, error) {
	if f.CurrentStep() != 2 {
		s.Notes.PushError(ErrWrongStep.Error())
		return "", ErrWrongStep
	}
	if in.NewPassword != in.ConfirmPassword {
		s.Notes.PushError("Password confirmation does not match")
		return "", ErrPasswordMismatch
	}
	req := model.PasswordReset{
		Email:           f.Email,
		OTP:             strings.TrimSpace(in.OTP),
		NewPassword:     in.NewPassword,
		ConfirmPassword: in.ConfirmPassword,
	}
	if err := utils.Validate(req); err != nil {
		s.Notes.PushError(err.Error())
		return "", err
	}
	epoch := s.Notes.Epoch()
	msg, err := s.API.ResetPassword(ctx, req)
	if err != nil {
		s.Notes.Push(epoch, notify.Error, apiclient.MessageOf(err, "Password reset failed"))
		return "", err
	}
	f.Cancel()
	if msg == "" {
		msg = "Your password has been reset"
	}
	s.Notes.Push(epoch, notify.Success, msg)
	return LoginPath, nil
}
