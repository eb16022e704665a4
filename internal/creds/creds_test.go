package creds

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) string { return "" }

func TestResolveFirstPath(t *testing.T) {
	var asked []string
	r := &Resolver{
		Lookup: func(_ context.Context, path string) (string, error) {
			asked = append(asked, path)
			return "token=abc123\nurl=https://desk.example.com/api/index.php\n", nil
		},
		Getenv: noEnv,
	}

	c, err := r.Resolve(context.Background(), "20859")
	require.NoError(t, err)
	assert.Equal(t, "abc123", c.Token)
	assert.Equal(t, "https://desk.example.com/api/index.php", c.BaseURL)
	assert.Equal(t, []string{"vision/20859"}, asked, "first path succeeded, second never tried")
}

func TestResolveFallsThroughPaths(t *testing.T) {
	var asked []string
	r := &Resolver{
		Lookup: func(_ context.Context, path string) (string, error) {
			asked = append(asked, path)
			if path == "vision/20859" {
				return "", errors.New("not in store")
			}
			return "token=xyz\n", nil
		},
		Getenv: noEnv,
	}

	c, err := r.Resolve(context.Background(), "20859")
	require.NoError(t, err)
	assert.Equal(t, "xyz", c.Token)
	assert.Equal(t, DefaultBaseURL, c.BaseURL, "url defaults when the entry has none")
	assert.Equal(t, []string{"vision/20859", "20859/visionhelpdesk/env"}, asked)
}

func TestResolveLegacyAlias(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantToken string
	}{
		{
			name:      "uppercase alias normalized",
			payload:   "VISION_TOKEN=legacy\n",
			wantToken: "legacy",
		},
		{
			name:      "lowercase wins over alias",
			payload:   "VISION_TOKEN=legacy\ntoken=current\n",
			wantToken: "current",
		},
		{
			name:      "comments and blanks ignored",
			payload:   "# helpdesk creds\n\ntoken=abc\n",
			wantToken: "abc",
		},
		{
			name:      "quoted value unwrapped",
			payload:   `token="quoted"` + "\n",
			wantToken: "quoted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resolver{
				Lookup: func(context.Context, string) (string, error) { return tt.payload, nil },
				Getenv: noEnv,
			}
			c, err := r.Resolve(context.Background(), "20859")
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, c.Token)
		})
	}
}

func TestResolveEmptyTokenKeepsTrying(t *testing.T) {
	// A store entry without a token is not a success.
	calls := 0
	r := &Resolver{
		Lookup: func(_ context.Context, path string) (string, error) {
			calls++
			if calls == 1 {
				return "url=https://desk.example.com\n", nil
			}
			return "token=found-later\n", nil
		},
		Getenv: noEnv,
	}

	c, err := r.Resolve(context.Background(), "20859")
	require.NoError(t, err)
	assert.Equal(t, "found-later", c.Token)
	assert.Equal(t, 2, calls)
}

func TestResolveEnvFallback(t *testing.T) {
	env := map[string]string{
		"VISION_TOKEN_20859": "env-token",
		"VISION_URL_20859":   "https://env.example.com/api/index.php",
	}
	r := &Resolver{
		Lookup: func(context.Context, string) (string, error) { return "", errors.New("pass unavailable") },
		Getenv: func(key string) string { return env[key] },
	}

	c, err := r.Resolve(context.Background(), "20859")
	require.NoError(t, err)
	assert.Equal(t, "env-token", c.Token)
	assert.Equal(t, "https://env.example.com/api/index.php", c.BaseURL)
}

func TestResolveEnvFallbackIsProfileNamespaced(t *testing.T) {
	env := map[string]string{"VISION_TOKEN_20859": "other-profile-token"}
	r := &Resolver{
		Lookup: func(context.Context, string) (string, error) { return "", errors.New("nope") },
		Getenv: func(key string) string { return env[key] },
	}

	_, err := r.Resolve(context.Background(), "11111")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCredentialsUnavailable)
}

func TestResolveUnavailable(t *testing.T) {
	r := &Resolver{
		Lookup: func(context.Context, string) (string, error) { return "", errors.New("pass: not found") },
		Getenv: noEnv,
	}
	_, err := r.Resolve(context.Background(), "20859")
	assert.ErrorIs(t, err, ErrCredentialsUnavailable)
}
