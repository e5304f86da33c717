// Package provision creates the DNS challenge TXT record, either by
// prompting the operator or through a DNS provider API.
package provision

import (
	"fmt"
	"sync"
)

type Backend interface {
	Configure(map[string]interface{}) error

	// ProvisionTXT makes the challenge value visible as a TXT record on
	// the subject FQDN.
	ProvisionTXT(fqdn string, value string, example string) error
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
		panic(fmt.Sprintf("provision: RegisterBackend('%s', nil)", name))
	}
	if _, dup := backendFactories[name]; dup {
		panic(fmt.Sprintf("provision: RegisterBackend called twice for backend '%s'", name))
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
		return nil, fmt.Errorf("could not init provisioner backend '%s': %v", name, err)
	}
	if backend == nil {
		return nil, fmt.Errorf("unknown provisioner backend '%s'", name)
	}

	return backend, nil
}
