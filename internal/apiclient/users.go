package apiclient

import (
	"context"
	"io"
	"net/http"

	"github.com/iliyamo/seatify-gateway/internal/model"
)

// Profile fetches the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (model.Profile, error) {
	var out model.Profile
	_, err := c.doJSON(ctx, http.MethodGet, "/users/profile", nil, nil, &out)
	return out, err
}

// UpdateProfile saves profile changes and returns the API's message.
func (c *Client) UpdateProfile(ctx context.Context, p model.ProfileUpdate) (string, error) {
	return c.doJSON(ctx, http.MethodPut, "/users/profile", nil, p, nil)
}

// ChangePassword updates the signed-in user's password.
func (c *Client) ChangePassword(ctx context.Context, p model.PasswordChange) (string, error) {
	return c.doJSON(ctx, http.MethodPut, "/users/change-password", nil, p, nil)
}

// UploadAvatar stores an image and returns its public URL.
func (c *Client) UploadAvatar(ctx context.Context, filename string, file io.Reader) (string, error) {
	var url string
	_, err := c.upload(ctx, "/users/avatar", "file", filename, file, &url)
	return url, err
}
