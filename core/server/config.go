package server

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// BodyLimitMB caps request bodies, and therefore uploaded documents.
	BodyLimitMB int `mapstructure:"body_limit_mb" default:"32"`
	// ReadTimeoutSeconds bounds reading a whole request, upload included.
	ReadTimeoutSeconds int `mapstructure:"read_timeout_seconds" default:"120"`
}

// BodyLimit returns the body limit in bytes, falling back to 32 MiB.
func (c Config) BodyLimit() int {
	if c.BodyLimitMB <= 0 {
		return 32 << 20
	}
	return c.BodyLimitMB << 20
}

// Address returns the listen address for the configured port.
func (c Config) Address() string {
	return ":" + c.Port
}
