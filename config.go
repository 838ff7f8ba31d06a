package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
	"github.com/goswami6/satyampay-checkout/services/sandbox"
)

type Config struct {
	Port              string
	BackendBaseURL    string
	BackendAPIKey     string
	BackendTimeout    time.Duration
	GatewayRuntimeURL string
	SessionTTL        time.Duration
	SweepInterval     time.Duration

	SandboxEnabled     bool
	SandboxGatewayMode checkoutapi.GatewayMode
	SandboxKeyID       string
	SandboxKeySecret   string
}

// LoadConfig reads the environment, after loading the given .env files (default ".env") when they exist.
// Variables already set in the environment win over the files.
func LoadConfig(envFiles ...string) (Config, error) {
	err := godotenv.Load(envFiles...)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("error loading env file: %s", err)
	}

	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		BackendBaseURL:    getEnv("BACKEND_BASE_URL", ""),
		BackendAPIKey:     getEnv("BACKEND_API_KEY", ""),
		GatewayRuntimeURL: getEnv("GATEWAY_RUNTIME_URL", ""),
		SandboxKeyID:      getEnv("SANDBOX_KEY_ID", "rzp_test_sandbox"),
		SandboxKeySecret:  getEnv("SANDBOX_KEY_SECRET", "sandbox-secret"),
	}

	cfg.BackendTimeout, err = getEnvAsDuration("BACKEND_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg.SessionTTL, err = getEnvAsDuration("SESSION_TTL", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepInterval = cfg.SessionTTL / 10
	if cfg.SweepInterval < time.Second {
		cfg.SweepInterval = time.Second
	}

	// without a real backend there is nothing to talk to but the sandbox
	cfg.SandboxEnabled, err = getEnvAsBool("SANDBOX_ENABLED", cfg.BackendBaseURL == "")
	if err != nil {
		return Config{}, err
	}

	cfg.SandboxGatewayMode = checkoutapi.GatewayMode(getEnv("SANDBOX_GATEWAY_MODE", string(checkoutapi.GatewayModeEmbedded)))
	switch cfg.SandboxGatewayMode {
	case checkoutapi.GatewayModeEmbedded, checkoutapi.GatewayModeRedirect:
	default:
		return Config{}, fmt.Errorf("invalid SANDBOX_GATEWAY_MODE %q", cfg.SandboxGatewayMode)
	}

	if cfg.BackendBaseURL == "" && !cfg.SandboxEnabled {
		return Config{}, fmt.Errorf("BACKEND_BASE_URL is required when the sandbox is disabled")
	}

	return cfg, nil
}

// BackendURL falls back to the in-process sandbox.
func (c Config) BackendURL() string {
	if c.BackendBaseURL != "" {
		return c.BackendBaseURL
	}
	return fmt.Sprintf("http://localhost:%s%s", c.Port, sandbox.APIPrefix)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, value)
	}
	return d, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, value)
	}
	return b, nil
}
