// Package export delivers issued certificate material to its destinations.
package export

import (
	"fmt"
	"sync"

	"github.com/timcappalli/certcenter-cert-request/certcenter"
)

type Backend interface {
	Configure(map[string]interface{}) error

	// Export delivers the certificate material for the subject FQDN.
	Export(fqdn string, fulfillment *certcenter.Fulfillment) error
}

type BackendFactory func() (Backend, error)

var backendFactoriesMutex sync.RWMutex
var backendFactories = make(map[string]BackendFactory)

func RegisterBackend(
	name string,
	bf BackendFactory,
) {
	backendFactoriesMutex.Lock()
	defer backendFactoriesMutex.Unlock()

	if bf == nil {
		panic(fmt.Sprintf("export: RegisterBackend('%s', nil)", name))
	}
	if _, dup := backendFactories[name]; dup {
		panic(fmt.Sprintf("export: RegisterBackend called twice for backend '%s'", name))
	}
	backendFactories[name] = bf
}

func GetBackend(
	name string,
) (
	Backend,
	error,
) {
	backendFactoriesMutex.RLock()
	defer backendFactoriesMutex.RUnlock()

	factoryFunction, found := backendFactories[name]
	if !found {
		return nil, nil
	}
	return factoryFunction()
}

func InitBackend(
	name string,
) (
	Backend,
	error,
) {
	backend, err := GetBackend(name)
	if err != nil {
		return nil, fmt.Errorf("could not init exporter backend '%s': %v", name, err)
	}
	if backend == nil {
		return nil, fmt.Errorf("unknown exporter backend '%s'", name)
	}

	return backend, nil
}
