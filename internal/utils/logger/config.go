// internal/utils/logger/config.go
package logger

type Config struct {
	// LogFile is the rotated JSON sink; empty disables it.
	LogFile     string
	MaxSize     int  // megabytes
	MaxAge      int  // days
	MaxBackups  int  // files
	Compress    bool // gzip rotated files
	Development bool
	// Quiet drops console output below warnings so CLI status lines stay readable.
	Quiet bool
	// NoColor disables ANSI level colors on the console.
	NoColor bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LogFile:    "launchpad.log",
		MaxSize:    50,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
	}
}
