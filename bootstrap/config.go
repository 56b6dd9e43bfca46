package bootstrap

import "github.com/kbukum/scribe/config"

// Config is satisfied by any config embedding config.ServiceConfig.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
