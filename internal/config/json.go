package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors [StructuredConfig] with JSON tags and string
// durations ("1h", "30s") so configuration files stay human-editable.
type StructuredJSONConfig struct {
	App struct {
		BaseURL         string `json:"base_url"`
		DefaultRedirect string `json:"default_redirect"`
		Version         string `json:"version"`
	} `json:"app,omitempty"`

	Security struct {
		BcryptCost       int      `json:"bcrypt_cost"`
		LockoutThreshold int      `json:"lockout_threshold"`
		LockoutDuration  Duration `json:"lockout_duration"`
		OTPTTL           Duration `json:"otp_ttl"`
		EmailTokenTTL    Duration `json:"email_token_ttl"`
		ResetTokenTTL    Duration `json:"reset_token_ttl"`
		LoginWindow      Duration `json:"login_window"`
		LoginMax         int      `json:"login_max"`
		SignupWindow     Duration `json:"signup_window"`
		SignupMax        int      `json:"signup_max"`
		ResetWindow      Duration `json:"reset_window"`
		ResetMax         int      `json:"reset_max"`
	} `json:"security,omitempty"`

	Storage struct {
		DB struct {
			Driver string `json:"driver"`
			DSN    string `json:"dsn"`
		} `json:"db,omitempty"`

		Redis struct {
			Address  string `json:"address"`
			Password string `json:"password"`
			Database int    `json:"database"`
		} `json:"redis,omitempty"`
	} `json:"storage,omitempty"`

	Server struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"server,omitempty"`

	SMTP struct {
		Host     string   `json:"host"`
		Port     int      `json:"port"`
		Username string   `json:"username"`
		Password string   `json:"password"`
		From     string   `json:"from"`
		FromName string   `json:"from_name"`
		Timeout  Duration `json:"timeout"`
	} `json:"smtp,omitempty"`

	Session struct {
		TTL        Duration `json:"ttl"`
		CookieName string   `json:"cookie_name"`
		SignKey    string   `json:"sign_key"`
		Issuer     string   `json:"issuer"`
	} `json:"session,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			BaseURL:         jsonCfg.App.BaseURL,
			DefaultRedirect: jsonCfg.App.DefaultRedirect,
			Version:         jsonCfg.App.Version,
		},
		Security: Security{
			BcryptCost:       jsonCfg.Security.BcryptCost,
			LockoutThreshold: jsonCfg.Security.LockoutThreshold,
			LockoutDuration:  time.Duration(jsonCfg.Security.LockoutDuration),
			OTPTTL:           time.Duration(jsonCfg.Security.OTPTTL),
			EmailTokenTTL:    time.Duration(jsonCfg.Security.EmailTokenTTL),
			ResetTokenTTL:    time.Duration(jsonCfg.Security.ResetTokenTTL),
			LoginWindow:      time.Duration(jsonCfg.Security.LoginWindow),
			LoginMax:         jsonCfg.Security.LoginMax,
			SignupWindow:     time.Duration(jsonCfg.Security.SignupWindow),
			SignupMax:        jsonCfg.Security.SignupMax,
			ResetWindow:      time.Duration(jsonCfg.Security.ResetWindow),
			ResetMax:         jsonCfg.Security.ResetMax,
		},
		Storage: Storage{
			DB: DB{
				Driver: jsonCfg.Storage.DB.Driver,
				DSN:    jsonCfg.Storage.DB.DSN,
			},
			Redis: Redis{
				Address:  jsonCfg.Storage.Redis.Address,
				Password: jsonCfg.Storage.Redis.Password,
				Database: jsonCfg.Storage.Redis.Database,
			},
		},
		Server: Server{
			HTTPAddress:    jsonCfg.Server.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Server.RequestTimeout),
		},
		SMTP: SMTP{
			Host:     jsonCfg.SMTP.Host,
			Port:     jsonCfg.SMTP.Port,
			Username: jsonCfg.SMTP.Username,
			Password: jsonCfg.SMTP.Password,
			From:     jsonCfg.SMTP.From,
			FromName: jsonCfg.SMTP.FromName,
			Timeout:  time.Duration(jsonCfg.SMTP.Timeout),
		},
		Session: Session{
			TTL:        time.Duration(jsonCfg.Session.TTL),
			CookieName: jsonCfg.Session.CookieName,
			SignKey:    jsonCfg.Session.SignKey,
			Issuer:     jsonCfg.Session.Issuer,
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
