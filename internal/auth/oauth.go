package auth

import (
	"fmt"

	"golang.org/x/oauth2"

	"trainload/internal/store"
)

const (
	// Strava OAuth endpoints
	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"
)

// Scopes required for our app (Strava uses comma-separated scopes)
var Scopes = []string{
	"read,activity:read_all",
}

// Config holds the OAuth client credentials
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackPort int
}

// RedirectURL is the local callback the provider redirects to
func (c Config) RedirectURL() string {
	port := c.CallbackPort
	if port == 0 {
		port = CallbackPort
	}
	return fmt.Sprintf("http://localhost:%d/callback", port)
}

// NewOAuthConfig creates an oauth2.Config from our Config
func NewOAuthConfig(cfg Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   AuthURL,
			TokenURL:  TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: cfg.RedirectURL(),
		Scopes:      Scopes,
	}
}

// AuthResult contains the token and athlete info from successful auth
type AuthResult struct {
	Token     *oauth2.Token
	AthleteID int64
	Scope     string
}

// StoreAuth converts the result into the persisted form
func (r *AuthResult) StoreAuth() *store.Auth {
	return &store.Auth{
		AthleteID:    r.AthleteID,
		AccessToken:  r.Token.AccessToken,
		RefreshToken: r.Token.RefreshToken,
		ExpiresAt:    r.Token.Expiry,
		Scope:        r.Scope,
	}
}

// TokenFromAuth rebuilds an oauth2 token from persisted auth
func TokenFromAuth(a *store.Auth) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       a.ExpiresAt,
	}
}

// ExtractAthleteID extracts the athlete ID from the token extras
// Strava includes athlete info in the token response
func ExtractAthleteID(token *oauth2.Token) int64 {
	if athlete, ok := token.Extra("athlete").(map[string]interface{}); ok {
		if id, ok := athlete["id"].(float64); ok {
			return int64(id)
		}
	}
	return 0
}
