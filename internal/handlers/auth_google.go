package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/mkhedmin/mkhedmin-api/internal/apperr"
	"github.com/mkhedmin/mkhedmin-api/internal/utils"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type GoogleOAuthHandler struct {
	Accounts        AccountService
	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string
	SecureCookies   bool

	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

func (h *GoogleOAuthHandler) oauthCfg() *oauth2.Config {
	endpoint := h.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	return &oauth2.Config{
		ClientID:     h.GoogleClientID,
		ClientSecret: h.GoogleSecret,
		RedirectURL:  h.GoogleRedirect,
		Endpoint:     endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func (h *GoogleOAuthHandler) stateCookie(value string, maxAge int) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     "oauth_state",
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.SecureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

func (h *GoogleOAuthHandler) GoogleStart(c *fiber.Ctx) error {
	st := utils.RandomState(32)
	c.Cookie(h.stateCookie(st, 10*60))
	return c.Redirect(h.oauthCfg().AuthCodeURL(st, oauth2.AccessTypeOffline), http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (h *GoogleOAuthHandler) fetchUserInfo(c *fiber.Ctx, code string) (*googleUserInfo, error) {
	cfg := h.oauthCfg()
	tok, err := cfg.Exchange(c.UserContext(), code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	infoURL := h.UserInfoURL
	if infoURL == "" {
		infoURL = googleUserInfoURL
	}
	resp, err := cfg.Client(c.UserContext(), tok).Get(infoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var gu googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &gu, nil
}

func (h *GoogleOAuthHandler) loginError(c *fiber.Ctx, code string) error {
	return c.Redirect(h.FrontendBaseURL+"/auth/login?err="+url.QueryEscape(code), http.StatusTemporaryRedirect)
}

// GoogleCallback redirects to the frontend with the token pair in the URL fragment.
func (h *GoogleOAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return apperr.BadRequest("OAUTH_INVALID_REQUEST", "Missing code or state")
	}
	if st := c.Cookies("oauth_state"); st == "" || st != state {
		return apperr.BadRequest("OAUTH_INVALID_STATE", "Invalid state")
	}
	c.Cookie(h.stateCookie("", -1))

	gu, err := h.fetchUserInfo(c, code)
	if err != nil {
		return apperr.New(fiber.StatusBadGateway, "OAUTH_EXCHANGE_FAILED", "Google sign-in failed")
	}

	res, err := h.Accounts.LoginWithGoogle(c.UserContext(), gu.Email)
	if err != nil {
		if e, ok := apperr.As(err); ok && e.Status < fiber.StatusInternalServerError {
			return h.loginError(c, e.Code)
		}
		return err
	}

	fragment := url.Values{}
	fragment.Set("accessToken", res.Tokens.AccessToken)
	fragment.Set("refreshToken", res.Tokens.RefreshToken)
	return c.Redirect(h.FrontendBaseURL+"/auth/callback#"+fragment.Encode(), http.StatusTemporaryRedirect)
}
