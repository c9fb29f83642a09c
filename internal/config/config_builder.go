package config

import (
	"errors"
	"fmt"
	"time"

	"dario.cat/mergo"
)

type configBuilder struct {
	configs []*StructuredConfig
	err     error
}

func newConfigBuilder() *configBuilder {
	return &configBuilder{
		configs: make([]*StructuredConfig, 0, 4),
	}
}

func (b *configBuilder) build() (*StructuredConfig, error) {
	if b.err != nil {
		return nil, fmt.Errorf("error occured during building config: %w", b.err)
	}

	config := new(StructuredConfig)
	for _, cfg := range b.configs {
		if err := mergo.Merge(config, cfg); err != nil {
			return nil, fmt.Errorf("error merging configs: %w", err)
		}
	}

	return config, config.validate()
}

func (b *configBuilder) withEnv() *configBuilder {
	envCfg := &StructuredConfig{}
	if err := parseEnv(envCfg); err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}

	b.configs = append(b.configs, envCfg)
	return b
}

func (b *configBuilder) withFlags() *configBuilder {
	flags := ParseFlags()

	b.configs = append(b.configs, flags)
	return b
}

func (b *configBuilder) withJSON() *configBuilder {
	var jsonPath string
	isJSONSpecified := false

	for _, cfg := range b.configs {
		if cfg.JSONFilePath != "" {
			isJSONSpecified = true
			jsonPath = cfg.JSONFilePath
		}
	}

	if isJSONSpecified {
		jsonCfg, err := parseJSON(jsonPath)
		if err != nil {
			b.err = errors.Join(b.err, err)
			return b
		}
		b.configs = append(b.configs, jsonCfg)
	}

	return b
}

// withDefaults appends the built-in defaults as the lowest-priority source.
// Any field left zero by env, flags, and JSON is filled from here.
func (b *configBuilder) withDefaults() *configBuilder {
	b.configs = append(b.configs, defaultConfig())
	return b
}

func defaultConfig() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			DefaultRedirect: "/dashboard",
			Version:         "dev",
		},
		Security: Security{
			BcryptCost:       10,
			LockoutThreshold: 5,
			LockoutDuration:  30 * time.Minute,
			OTPTTL:           10 * time.Minute,
			EmailTokenTTL:    24 * time.Hour,
			ResetTokenTTL:    time.Hour,
			LoginWindow:      15 * time.Minute,
			LoginMax:         5,
			SignupWindow:     time.Hour,
			SignupMax:        5,
			ResetWindow:      time.Hour,
			ResetMax:         3,
		},
		Storage: Storage{
			DB: DB{Driver: "pgx"},
		},
		Server: Server{
			HTTPAddress:    "localhost:8080",
			RequestTimeout: 30 * time.Second,
		},
		SMTP: SMTP{
			Port:    587,
			Timeout: 10 * time.Second,
		},
		Session: Session{
			TTL:        12 * time.Hour,
			CookieName: "tp_session",
			Issuer:     "tillpoint-accounts",
		},
	}
}
