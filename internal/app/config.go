package app

import (
	"errors"
	"net/http"

	"github.com/spf13/viper"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home      string       // config directory, e.g. $HOME/.courier
	ServerURL string       // message server base URL
	Verbose   bool         // development logging
	HTTP      *http.Client // optional; defaults to http.DefaultClient
}

// Load reads courier.yaml from home (if present) and the COURIER_*
// environment, with flags applied by the caller on top.
func Load(home string) (Config, error) {
	v := viper.New()
	v.SetDefault("server_url", "http://127.0.0.1:8080")
	v.SetDefault("verbose", false)

	v.SetConfigName("courier")
	v.SetConfigType("yaml")
	v.AddConfigPath(home)
	v.SetEnvPrefix("courier")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	return Config{
		Home:      home,
		ServerURL: v.GetString("server_url"),
		Verbose:   v.GetBool("verbose"),
	}, nil
}
