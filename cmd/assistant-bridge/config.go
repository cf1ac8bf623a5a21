package main

import "time"

// Config holds server configuration loaded from environment variables.
type Config struct {
	Port       int    `envconfig:"PORT" default:"8080"`
	RedisURL   string `envconfig:"REDIS_URL" required:"true"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"assistant-bridge.db"`

	// Assistant platform client registration.
	ClientID     string `envconfig:"CLIENT_ID" required:"true"`
	ClientSecret string `envconfig:"CLIENT_SECRET" required:"true"`
	RedirectURI  string `envconfig:"REDIRECT_URI" required:"true"`

	// Key namespace shared with the devices, e.g. "gbridge" keeps
	// existing device firmware subscriptions working.
	Namespace string `envconfig:"NAMESPACE" default:"bridge"`
	Hosted    bool   `envconfig:"HOSTED" default:"false"`

	// Command bus backend: "redis" or "mqtt".
	BusBackend   string `envconfig:"BUS_BACKEND" default:"redis"`
	MQTTBroker   string `envconfig:"MQTT_BROKER"`
	MQTTClientID string `envconfig:"MQTT_CLIENT_ID" default:"assistant-bridge"`
	MQTTUsername string `envconfig:"MQTT_USERNAME"`
	MQTTPassword string `envconfig:"MQTT_PASSWORD"`
	MQTTQoS      byte   `envconfig:"MQTT_QOS" default:"0"`

	// Empty token disables the admin API.
	AdminToken string `envconfig:"ADMIN_TOKEN"`

	CSRFSecret      string        `envconfig:"CSRF_SECRET" required:"true"`
	CSRFTokenExpiry time.Duration `envconfig:"CSRF_TOKEN_EXPIRY" default:"15m"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout       time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout      time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout       time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
}
