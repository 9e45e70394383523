package config

type Postgres struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	DB       string `koanf:"db"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"ssl_mode"`
}

type HttpServer struct {
	Address string `koanf:"address"`
}

type Vault struct {
	Address   string `koanf:"address"`
	Token     string `koanf:"token"`
	CaPath    string `koanf:"ca_path"`
	MountPath string `koanf:"mount_path"`
}

type NATS struct {
	URL string `koanf:"url"`
}

type AdboardService struct {
	BaseURL string `koanf:"base_url"`
	Token   string `koanf:"token"`
}

// OAuthApp holds the registered OAuth application for one provider. The
// redirect base URI is what the dashboard hands to the provider's consent
// screen; token exchange itself happens outside this engine.
type OAuthApp struct {
	ClientID        string `koanf:"client_id"`
	ClientSecret    string `koanf:"client_secret"`
	RedirectBaseURI string `koanf:"redirect_base_uri"`
}
