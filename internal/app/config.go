package app

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete client configuration, loadable from environment
// variables (STOREFRONT_ prefix) or YAML config files.
type Config struct {
	APIURL     string        `env:"API_URL" yaml:"api_url" usage:"Backend base URL (STOREFRONT_API_URL, VITE_API_URL or API_URL)"`
	PaymentKey string        `env:"PAYMENT_KEY" yaml:"payment_key" usage:"Gateway public key (STOREFRONT_PAYMENT_KEY or RAZORPAY_KEY_ID)"`
	StateDir   string        `env:"STATE_DIR" yaml:"state_dir" usage:"Directory for persisted session, cart and wishlist"`
	HTTP       HTTPConfig    `env:"HTTP" yaml:"http"`
	Payment    PaymentConfig `env:"PAYMENT" yaml:"payment"`
}

// HTTPConfig controls the generic API client.
type HTTPConfig struct {
	Timeout        time.Duration `default:"30s" env:"TIMEOUT" yaml:"timeout" usage:"Request timeout including retries"`
	MaxRetries     int           `default:"3" env:"MAX_RETRIES" yaml:"max_retries" usage:"Retries for transient statuses"`
	RetryBaseDelay time.Duration `default:"1s" env:"RETRY_BASE_DELAY" yaml:"retry_base_delay" usage:"Delay before the first retry, doubled each time"`
}

// PaymentConfig controls the payment confirmation flow.
type PaymentConfig struct {
	VerifyTimeout     time.Duration `default:"90s" env:"VERIFY_TIMEOUT" yaml:"verify_timeout" usage:"Deadline for payment verification"`
	VerifyAttempts    int           `default:"4" env:"VERIFY_ATTEMPTS" yaml:"verify_attempts" usage:"Verification attempts"`
	VerifyBaseDelay   time.Duration `default:"3s" env:"VERIFY_BASE_DELAY" yaml:"verify_base_delay" usage:"Delay before the first verification retry"`
	WakeAttempts      int           `default:"8" env:"WAKE_ATTEMPTS" yaml:"wake_attempts" usage:"Health pings while waking the backend"`
	WakeDelay         time.Duration `default:"5s" env:"WAKE_DELAY" yaml:"wake_delay" usage:"Delay between wake-up pings"`
	KeepAliveInterval time.Duration `default:"30s" env:"KEEP_ALIVE_INTERVAL" yaml:"keep_alive_interval" usage:"Keep-alive ping interval during checkout"`
	ScriptURL         string        `default:"https://checkout.razorpay.com/v1/checkout.js" env:"SCRIPT_URL" yaml:"script_url" usage:"Hosted checkout script"`
	Currency          string        `default:"INR" env:"CURRENCY" yaml:"currency" usage:"Payment currency"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files. An explicit file, when given, takes precedence over the default
// locations.
func LoadConfig(file string) (*Config, error) {
	var files []string
	if file != "" {
		files = append(files, file)
	}
	files = append(files, "storefront.yaml")
	if dir, err := os.UserConfigDir(); err == nil {
		files = append(files, filepath.Join(dir, "storefront", "config.yaml"))
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags: true,
		EnvPrefix: "STOREFRONT",
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the variable names used by the web storefront
// build (VITE_API_URL, RAZORPAY_KEY_ID) to the STOREFRONT_-prefixed ones.
func (c *Config) applyPlatformDefaults() {
	if c.APIURL == "" {
		for _, name := range []string{"VITE_API_URL", "API_URL"} {
			if v := os.Getenv(name); v != "" {
				c.APIURL = v
				break
			}
		}
	}
	if c.PaymentKey == "" {
		c.PaymentKey = os.Getenv("RAZORPAY_KEY_ID")
	}
	c.APIURL = strings.TrimSuffix(c.APIURL, "/")
	if c.StateDir == "" {
		c.StateDir = defaultStateDir()
	}
}

// Validate reports configuration errors.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("API URL is required: set STOREFRONT_API_URL or VITE_API_URL")
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return errors.Errorf("API URL %q must start with http:// or https://", c.APIURL)
	}
	if c.HTTP.MaxRetries < 0 {
		return errors.New("http max retries must not be negative")
	}
	if c.Payment.VerifyAttempts < 1 {
		return errors.New("payment verify attempts must be at least 1")
	}
	if c.Payment.WakeAttempts < 1 {
		return errors.New("payment wake attempts must be at least 1")
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"http timeout", c.HTTP.Timeout},
		{"http retry base delay", c.HTTP.RetryBaseDelay},
		{"payment verify timeout", c.Payment.VerifyTimeout},
		{"payment verify base delay", c.Payment.VerifyBaseDelay},
		{"payment wake delay", c.Payment.WakeDelay},
		{"payment keep-alive interval", c.Payment.KeepAliveInterval},
	} {
		if d.value <= 0 {
			return errors.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	return nil
}

func defaultStateDir() string {
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		return filepath.Join(v, "storefront")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".storefront"
	}
	return filepath.Join(home, ".local", "state", "storefront")
}
