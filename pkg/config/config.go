package config

import (
	"os"
)

type EnvVarName string // should be caps with underscore

const (
	idracUsername   EnvVarName = "IDRAC_USERNAME"
	idracPassword   EnvVarName = "IDRAC_PASSWORD" // #nosec G101 -- env var name, not a credential
	idracSourceIP   EnvVarName = "IDRAC_SOURCE_IP"
	idracTargetIPs  EnvVarName = "IDRAC_TARGET_IPS"
	idracConfigFile EnvVarName = "IDRAC_CONFIG_FILE"
	debugHTTP       EnvVarName = "DEBUG_HTTP"
)

type ConstantsConfig struct{}

func NewConstants() *ConstantsConfig {
	return &ConstantsConfig{}
}

func (c ConstantsConfig) GetUsername() string {
	return getEnvOrDefault(idracUsername, "")
}

func (c ConstantsConfig) GetPassword() string {
	return getEnvOrDefault(idracPassword, "")
}

func (c ConstantsConfig) GetSourceIPOverride() string {
	return getEnvOrDefault(idracSourceIP, "")
}

func (c ConstantsConfig) GetTargetIPsOverride() string {
	return getEnvOrDefault(idracTargetIPs, "")
}

func (c ConstantsConfig) GetConfigFile() string {
	return getEnvOrDefault(idracConfigFile, "config.yaml")
}

func (c ConstantsConfig) GetDebugHTTP() bool {
	return getEnvOrDefault(debugHTTP, "") != ""
}

func getEnvOrDefault(envVarName EnvVarName, defaultVal string) string {
	val := os.Getenv(string(envVarName))
	if val == "" {
		return defaultVal
	}
	return val
}

var GlobalConfig = NewConstants()
