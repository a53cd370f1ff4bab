package mpesa

const (
	EnvSandbox    = "sandbox"
	EnvProduction = "production"
	EnvDemo       = "demo"

	sandboxURL    = "https://sandbox.safaricom.co.ke"
	productionURL = "https://api.safaricom.co.ke"
)

// Config holds the Daraja credentials. BaseURL overrides the URL derived from
// Environment.
type Config struct {
	ConsumerKey       string
	ConsumerSecret    string
	BusinessShortCode string
	Passkey           string
	CallbackURL       string
	Environment       string
	BaseURL           string
}

var placeholders = map[string]bool{
	"your_consumer_key_here":    true,
	"your_consumer_secret_here": true,
	"your_passkey_here":         true,
}

func present(v string) bool { return v != "" && !placeholders[v] }

// IsConfigured reports whether real STK pushes can be attempted.
func (c Config) IsConfigured() bool {
	if c.Environment == EnvDemo {
		return false
	}
	return present(c.ConsumerKey) &&
		present(c.ConsumerSecret) &&
		c.BusinessShortCode != "" &&
		present(c.Passkey)
}

func (c Config) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Environment == EnvProduction {
		return productionURL
	}
	return sandboxURL
}
