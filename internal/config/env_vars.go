package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	environmentVar = "ENV"

	// EnvProduction switches on the Secure cookie flag and quiet logging.
	EnvProduction = "production"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

// loadDotEnv loads a local .env file if present. Missing files are fine;
// deployed environments inject real variables.
func loadDotEnv() {
	_ = godotenv.Load()
}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Session Gateway")
}

func (EnvVars) GetEnv() string {
	return GetEnv(environmentVar, "DEV")
}

// GetEnv reads an environment variable with a fallback default.
func GetEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}
