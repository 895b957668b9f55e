package backend

import (
	"errors"
	"fmt"

	"expenses/internal/config"
)

// FromAppConfig picks the backend settings out of the application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	c := Config{
		Type:         BackendType(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		Events: EventsConfig{
			URL:      appConfig.AMQPURL,
			Exchange: appConfig.AMQPExchange,
			Queue:    appConfig.AMQPQueue,
		},
	}
	if !c.Type.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	return c, nil
}

// Validate reports every inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error

	if !c.Type.IsValid() {
		errs = append(errs, fmt.Errorf("invalid backend type %q: must be one of %v", c.Type, BackendTypes()))
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		errs = append(errs, errors.New("SQLite database path is required for sqlite backend"))
	}
	if c.Events.Enabled() {
		if c.Events.Exchange == "" {
			errs = append(errs, errors.New("AMQP exchange is required when events are enabled"))
		}
		if c.Events.Queue == "" {
			errs = append(errs, errors.New("AMQP queue is required when events are enabled"))
		}
	}

	return errors.Join(errs...)
}
