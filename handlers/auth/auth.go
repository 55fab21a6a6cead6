// Package auth signs operators in through GitHub or an OIDC provider and
// issues the JWT that protects the mutating API routes.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"idcard-designer/config"
	"idcard-designer/core"
	"io"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	stateCookie = "oauth_state"
	tokenTTL    = 7 * 24 * time.Hour
)

var ErrNoSecret = errors.New("JWT_SECRET is not set")

// OperatorClaims are the JWT claims identifying an operator.
type OperatorClaims struct {
	jwt.RegisteredClaims
	Login     string `json:"login"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatarUrl"`
	Name      string `json:"name"`
}

// oidcClaims are read from the provider's ID token.
type oidcClaims struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Picture           string `json:"picture"`
	Sub               string `json:"sub"`
}

type Service struct {
	secret []byte

	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	// identify turns an exchanged token into an operator.
	identify func(ctx context.Context, token *oauth2.Token) (*core.Operator, error)
}

// New configures OIDC when an issuer is set, otherwise GitHub, otherwise
// no login provider at all. Tokens can still be parsed in the last case.
func New(ctx context.Context, cfg config.Auth) *Service {
	s := &Service{secret: []byte(cfg.JWTSecret)}
	if len(s.secret) == 0 {
		logrus.Warn("JWT_SECRET is not set. Authentication will not work.")
	}

	switch {
	case cfg.OIDCEnabled():
		logrus.Info("Initializing OIDC authentication provider.")
		if err := s.initOIDC(ctx, cfg); err != nil {
			logrus.WithError(err).Error("Failed to create OIDC provider")
		}
	case cfg.GitHubEnabled():
		logrus.Info("Initializing GitHub authentication provider.")
		s.oauth = &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.GitHubRedirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}
		s.identify = s.githubOperator
	default:
		logrus.Warn("No authentication provider configured.")
	}
	return s
}

func (s *Service) initOIDC(ctx context.Context, cfg config.Auth) error {
	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuerURL)
	if err != nil {
		return err
	}
	s.oauth = &oauth2.Config{
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURL:  cfg.OIDCRedirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		Endpoint:     provider.Endpoint(),
	}
	s.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID})
	s.identify = s.oidcOperator
	logrus.Info("OIDC provider initialized")
	return nil
}

func (s *Service) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil {
		http.Error(w, "Authentication not configured", http.StatusInternalServerError)
		return
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		http.Error(w, "Failed to generate login state", http.StatusInternalServerError)
		return
	}
	state := hex.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (s *Service) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil {
		http.Error(w, "Authentication not configured", http.StatusInternalServerError)
		return
	}
	fail := func(msg string, err error) {
		logrus.WithError(err).Error(msg)
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.FormValue("state") {
		fail("OAuth state mismatch", err)
		return
	}
	code := r.FormValue("code")
	if code == "" {
		fail("No code in callback", nil)
		return
	}

	token, err := s.oauth.Exchange(r.Context(), code)
	if err != nil {
		fail("Failed to exchange token", err)
		return
	}
	operator, err := s.identify(r.Context(), token)
	if err != nil {
		fail("Failed to identify operator", err)
		return
	}
	jwtToken, err := s.IssueToken(operator)
	if err != nil {
		fail("Failed to create JWT", err)
		return
	}

	logrus.WithField("login", operator.Login).Info("Operator signed in")
	http.Redirect(w, r, fmt.Sprintf("/?token=%s", jwtToken), http.StatusTemporaryRedirect)
}

func (s *Service) githubOperator(ctx context.Context, token *oauth2.Token) (*core.Operator, error) {
	resp, err := s.oauth.Client(ctx, token).Get("https://api.github.com/user")
	if err != nil {
		return nil, fmt.Errorf("failed to get user from github: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read github response body: %w", err)
	}
	var user struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
		Name      string `json:"name"`
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal github user: %w", err)
	}
	return &core.Operator{
		Subject:   fmt.Sprintf("github:%d", user.ID),
		Login:     user.Login,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
		Name:      user.Name,
	}, nil
}

func (s *Service) oidcOperator(ctx context.Context, token *oauth2.Token) (*core.Operator, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("no id_token in token response")
	}
	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}
	var claims oidcClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to extract claims from ID token: %w", err)
	}

	op := &core.Operator{
		Subject:   claims.Sub,
		Login:     claims.PreferredUsername,
		Email:     claims.Email,
		AvatarURL: claims.Picture,
		Name:      claims.Name,
	}
	if op.Login == "" {
		op.Login = op.Email
	}
	return op, nil
}

// IssueToken signs a week-long HS256 token for op.
func (s *Service) IssueToken(op *core.Operator) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims := OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   op.Subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Login:     op.Login,
		Email:     op.Email,
		AvatarURL: op.AvatarURL,
		Name:      op.Name,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken validates a token issued by IssueToken.
func (s *Service) ParseToken(tokenString string) (*OperatorClaims, error) {
	if len(s.secret) == 0 {
		return nil, ErrNoSecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*OperatorClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// Operator converts claims back into the operator they were issued for.
func (c *OperatorClaims) Operator() *core.Operator {
	op := &core.Operator{
		Subject:   c.Subject,
		Login:     c.Login,
		Email:     c.Email,
		AvatarURL: c.AvatarURL,
		Name:      c.Name,
	}
	if c.IssuedAt != nil {
		op.CreatedAt = c.IssuedAt.Time
	}
	return op
}
