package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"connect-four-arena/utils"
)

// AuthClient talks to the external identity provider. The match service
// never issues identities itself; signup is proxied and only the resulting
// opaque user id comes back.
type AuthClient struct {
	BaseURL string
	AnonKey string
	Client  *http.Client
}

// AuthUser is the provider's view of a signed-up identity.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func NewAuthClient(baseURL, anonKey string) *AuthClient {
	return &AuthClient{
		BaseURL: baseURL,
		AnonKey: anonKey,
		Client:  utils.HTTPClient,
	}
}

// SignUp registers email/password with the identity provider and returns
// the new opaque identity.
func (c *AuthClient) SignUp(email, password string) (*AuthUser, error) {
	url := fmt.Sprintf("%s/auth/v1/signup", c.BaseURL)

	reqBody := map[string]string{
		"email":    email,
		"password": password,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.AnonKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Printf("Auth provider signup returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("signup failed: %d", resp.StatusCode)
	}

	var out struct {
		ID    string    `json:"id"`
		Email string    `json:"email"`
		User  *AuthUser `json:"user"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if out.User != nil {
		return out.User, nil
	}
	return &AuthUser{ID: out.ID, Email: out.Email}, nil
}
