// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken    string
	GitHubUsername string
	RepoFullName   string
	PRNumber       int
	GitDir         string
	PollInterval   time.Duration
	ListenAddr     string
	DBPath         string
}

// Load reads configuration from environment variables and returns a validated
// Config. Required: REVIEWLENS_GITHUB_TOKEN, REVIEWLENS_GITHUB_USERNAME,
// REVIEWLENS_REPO (owner/repo), REVIEWLENS_PR (pull request number).
// Optional with defaults: REVIEWLENS_GIT_DIR (.), REVIEWLENS_POLL_INTERVAL (2m),
// REVIEWLENS_LISTEN_ADDR (127.0.0.1:8080), REVIEWLENS_DB_PATH (reviewlens.db).
func Load() (*Config, error) {
	token := os.Getenv("REVIEWLENS_GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("REVIEWLENS_GITHUB_TOKEN is required")
	}

	username := os.Getenv("REVIEWLENS_GITHUB_USERNAME")
	if username == "" {
		return nil, fmt.Errorf("REVIEWLENS_GITHUB_USERNAME is required")
	}

	repo := os.Getenv("REVIEWLENS_REPO")
	if repo == "" {
		return nil, fmt.Errorf("REVIEWLENS_REPO is required")
	}
	if parts := strings.SplitN(repo, "/", 3); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("REVIEWLENS_REPO has invalid value %q: expected owner/repo", repo)
	}

	prStr := os.Getenv("REVIEWLENS_PR")
	if prStr == "" {
		return nil, fmt.Errorf("REVIEWLENS_PR is required")
	}
	prNumber, err := strconv.Atoi(prStr)
	if err != nil || prNumber <= 0 {
		return nil, fmt.Errorf("REVIEWLENS_PR has invalid value %q: expected a positive integer", prStr)
	}

	gitDir := "."
	if v, ok := os.LookupEnv("REVIEWLENS_GIT_DIR"); ok {
		gitDir = v
	}

	pollInterval := 2 * time.Minute
	if v, ok := os.LookupEnv("REVIEWLENS_POLL_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("REVIEWLENS_POLL_INTERVAL has invalid duration %q: %w", v, err)
		}
		pollInterval = parsed
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("REVIEWLENS_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "reviewlens.db"
	if v, ok := os.LookupEnv("REVIEWLENS_DB_PATH"); ok {
		dbPath = v
	}

	return &Config{
		GitHubToken:    token,
		GitHubUsername: username,
		RepoFullName:   repo,
		PRNumber:       prNumber,
		GitDir:         gitDir,
		PollInterval:   pollInterval,
		ListenAddr:     listenAddr,
		DBPath:         dbPath,
	}, nil
}
