package email

import (
	"fmt"

	"garagem/internal/config"
	"garagem/internal/garagem"
)

// NewDispatcherFromConfig creates an EmailDispatcher based on the
// configuration type. The EmailJS private key is read from secrets when
// PrivateKeySecret is set and the store is configured.
func NewDispatcherFromConfig(cfg config.EmailConfig, secrets garagem.SecretStore, clock garagem.Clock, logger garagem.Logger) (garagem.EmailDispatcher, error) {
	switch cfg.Type {
	case "emailjs", "":
		var privateKey string
		if cfg.PrivateKeySecret != "" && secrets != nil && secrets.IsConfigured() {
			key, err := secrets.Get(cfg.PrivateKeySecret)
			if err != nil {
				return nil, fmt.Errorf("loading emailjs private key: %w", err)
			}
			privateKey = key
		}
		return NewEmailJSDispatcher(EmailJSOptions{
			ServiceID:  cfg.ServiceID,
			TemplateID: cfg.TemplateID,
			PublicKey:  cfg.PublicKey,
			PrivateKey: privateKey,
			Endpoint:   cfg.Endpoint,
		}, clock, logger), nil
	case "log":
		return NewLogDispatcher(clock, logger), nil
	case "none":
		return NoopDispatcher{}, nil
	default:
		return nil, fmt.Errorf("unknown email type: %q", cfg.Type)
	}
}
