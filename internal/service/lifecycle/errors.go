package lifecycle

import "errors"

var (
	ErrEventNotFound          = errors.New("event not found")
	ErrRegistryNotInitialized = errors.New("registry not initialized")
	ErrUnknownSaleType        = errors.New("unknown sale type")
)
