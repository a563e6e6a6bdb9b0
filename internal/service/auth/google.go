package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/globalbeauty/concierge-api/pkg/errors"
)

const tokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleVerifier validates Google ID tokens against the tokeninfo
// endpoint and checks the audience claim.
type GoogleVerifier struct {
	clientID string
	client   *http.Client
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*Profile, error) {
	endpoint := tokenInfoURL + "?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, apperrors.Dependency("token verification unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token rejected with status %d", resp.StatusCode)
	}

	var claims struct {
		Sub           string `json:"sub"`
		Aud           string `json:"aud"`
		Email         string `json:"email"`
		EmailVerified string `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, err
	}
	if v.clientID != "" && claims.Aud != v.clientID {
		return nil, fmt.Errorf("token audience mismatch")
	}
	if claims.EmailVerified != "true" {
		return nil, fmt.Errorf("email not verified")
	}

	return &Profile{
		ProviderID: claims.Sub,
		Email:      claims.Email,
		Name:       claims.Name,
		Picture:    claims.Picture,
	}, nil
}
