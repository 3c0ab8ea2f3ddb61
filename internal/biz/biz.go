// Package biz contains business logic layer implementations.
// Repository interfaces are declared here and implemented in data.
package biz

import (
	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewRateLimiterUseCase,
	NewWeatherUseCase,
	NewJokeUseCase,
)
