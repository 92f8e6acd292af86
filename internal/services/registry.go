package services

import (
	"fmt"

	"github.com/benmeehan/location-agent/internal/registry"
	"github.com/rs/zerolog"
)

type namedService struct {
	name string
	svc  registry.Service
}

// ServiceRegistry manages a collection of services and their startup order
type ServiceRegistry struct {
	services []namedService
	logger   zerolog.Logger
}

// NewServiceRegistry initializes and returns a new ServiceRegistry instance
func NewServiceRegistry(logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{logger: logger}
}

// RegisterService adds a service to the registry and maintains the order of registration
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	for _, s := range sr.services {
		if s.name == name {
			sr.logger.Warn().Str("service", name).Msg("Service is already registered")
			return
		}
	}
	sr.services = append(sr.services, namedService{name: name, svc: svc})
	sr.logger.Info().Str("service", name).Msg("Registered service")
}

// StartServices starts all registered services in the order they were added.
// Services already started are stopped again if a later one fails.
func (sr *ServiceRegistry) StartServices() error {
	for i, s := range sr.services {
		sr.logger.Info().Str("service", s.name).Msg("Starting service")
		if err := s.svc.Start(); err != nil {
			sr.stop(sr.services[:i])
			return fmt.Errorf("failed to start service %s: %w", s.name, err)
		}
	}
	return nil
}

// StopServices stops all services in reverse registration order.
func (sr *ServiceRegistry) StopServices() {
	sr.stop(sr.services)
}

// Len returns the number of registered services.
func (sr *ServiceRegistry) Len() int {
	return len(sr.services)
}

func (sr *ServiceRegistry) stop(started []namedService) {
	for i := len(started) - 1; i >= 0; i-- {
		s := started[i]
		if err := s.svc.Stop(); err != nil {
			sr.logger.Error().Err(err).Str("service", s.name).Msg("Failed to stop service")
		}
	}
}
