package api

import (
	"context"
	"errors"
	"net/http"
)

// DefaultUserInfoURL is Google's OpenID Connect userinfo endpoint.
const DefaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleUserInfo is the identity behind the current credential.
type GoogleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name,omitempty"`
	FamilyName    string `json:"family_name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	Locale        string `json:"locale,omitempty"`
}

// Validate implements Validator.
func (u *GoogleUserInfo) Validate() error {
	if u.Sub == "" {
		return errors.New("userinfo response has no sub claim")
	}
	return nil
}

// UserInfo fetches the identity of the authenticated user.
func (e *Executor) UserInfo(ctx context.Context) (*GoogleUserInfo, error) {
	var info GoogleUserInfo
	if err := e.Execute(ctx, http.MethodGet, e.userInfoURL, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
