// Package creds resolves helpdesk API credentials for a named profile from
// the pass(1) secret store, with profile-namespaced environment variables as
// a fallback for environments without pass.
package creds

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/joho/godotenv"
)

// ErrCredentialsUnavailable indicates no lookup path produced a usable token.
// Fatal to the cycle: nothing is queried or persisted without credentials.
var ErrCredentialsUnavailable = errors.New("credentials unavailable")

// DefaultBaseURL is the stock portal API endpoint used when the secret store
// entry carries only a token.
const DefaultBaseURL = "https://clients.sipcapturer.com/api/index.php"

// Credentials is the resolved shape: an API token and the endpoint it is
// valid for.
type Credentials struct {
	Token   string
	BaseURL string
}

// Resolver resolves credentials for a profile. Both collaborators are
// injectable so tests never shell out or touch the process environment.
type Resolver struct {
	// Lookup fetches the secret-store payload for one path. The default
	// runs `pass <path>` and returns its stdout.
	Lookup func(ctx context.Context, path string) (string, error)

	// Getenv reads an environment variable. Defaults to os.Getenv.
	Getenv func(key string) string
}

// NewResolver returns a Resolver backed by pass(1) and the real environment.
func NewResolver() *Resolver {
	return &Resolver{
		Lookup: passLookup,
		Getenv: os.Getenv,
	}
}

// lookupPaths returns the ordered secret-store paths tried for a profile.
func lookupPaths(profile string) []string {
	return []string{
		"vision/" + profile,
		profile + "/visionhelpdesk/env",
	}
}

// Resolve tries each secret-store path in order, parsing the payload as
// KEY=value lines (comments and blank lines ignored), and returns the first
// result with a non-empty token. When no path succeeds it falls back to
// VISION_TOKEN_<profile> / VISION_URL_<profile> from the environment.
func (r *Resolver) Resolve(ctx context.Context, profile string) (Credentials, error) {
	lookup := r.Lookup
	if lookup == nil {
		lookup = passLookup
	}
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	for _, path := range lookupPaths(profile) {
		payload, err := lookup(ctx, path)
		if err != nil {
			continue
		}
		kv, err := godotenv.Unmarshal(payload)
		if err != nil {
			continue
		}
		c := normalize(kv)
		if c.Token != "" {
			return c, nil
		}
	}

	if token := getenv("VISION_TOKEN_" + profile); token != "" {
		c := Credentials{Token: token, BaseURL: DefaultBaseURL}
		if u := getenv("VISION_URL_" + profile); u != "" {
			c.BaseURL = u
		}
		return c, nil
	}

	return Credentials{}, fmt.Errorf("%w: no usable token for profile %s", ErrCredentialsUnavailable, profile)
}

// normalize collapses the known key aliases into the canonical shape. The
// legacy uppercase VISION_TOKEN key loses to a lowercase token key when both
// are present.
func normalize(kv map[string]string) Credentials {
	c := Credentials{BaseURL: DefaultBaseURL}
	if v := strings.TrimSpace(kv["VISION_TOKEN"]); v != "" {
		c.Token = v
	}
	if v := strings.TrimSpace(kv["token"]); v != "" {
		c.Token = v
	}
	if v := strings.TrimSpace(kv["url"]); v != "" {
		c.BaseURL = v
	}
	return c
}

// passLookup shells out to pass(1) for one path.
func passLookup(ctx context.Context, path string) (string, error) {
	out, err := exec.CommandContext(ctx, "pass", path).Output()
	if err != nil {
		return "", fmt.Errorf("pass %s: %w", path, err)
	}
	return string(out), nil
}
