package model

// Credentials is the password-login payload.
type Credentials struct {
    Email    string `json:"email" validate:"required,email"`
    Password string `json:"password" validate:"required"`
}

// Registration is the sign-up payload.  ConfirmPassword is checked locally
// and is still forwarded because the API validates it again.
type Registration struct {
    FullName        string `json:"fullName" validate:"required,min=2"`
    Email           string `json:"email" validate:"required,email"`
    Phone           string `json:"phone" validate:"omitempty,phone"`
    Password        string `json:"password" validate:"required,min=6"`
    ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// AuthResult is what the API returns after login, registration or an OAuth
// code exchange.
type AuthResult struct {
    Token string   `json:"token"`
    Roles []string `json:"roles"`
    Email string   `json:"email"`
}

// PasswordReset is step two of the forgot-password flow.
type PasswordReset struct {
    Email           string `json:"email" validate:"required,email"`
    OTP             string `json:"otp" validate:"required"`
    NewPassword     string `json:"newPassword" validate:"required,min=6"`
    ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// Profile is the signed-in user's profile as returned by the API.
type Profile struct {
    FullName  string `json:"fullName"`
    Email     string `json:"email"`
    Phone     string `json:"phone"`
    AvatarURL string `json:"avatarUrl"`
}

// ProfileUpdate is the editable part of a profile.
type ProfileUpdate struct {
    FullName  string `json:"fullName" validate:"required,min=2"`
    AvatarURL string `json:"avatarUrl"`
    Phone     string `json:"phone" validate:"omitempty,phone"`
}

// PasswordChange is the change-password payload for a signed-in user.
type PasswordChange struct {
    OldPassword        string `json:"oldPassword" validate:"required"`
    NewPassword        string `json:"newPassword" validate:"required,min=6"`
    ConfirmNewPassword string `json:"confirmNewPassword" validate:"required,eqfield=NewPassword"`
}

// BookingStats summarises a user's attendance history.
type BookingStats struct {
    TotalParticipated int `json:"totalParticipated"`
    PresentCount      int `json:"presentCount"`
    AbsentCount       int `json:"absentCount"`
}
