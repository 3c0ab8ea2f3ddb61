// Package service adapts inbound commands to the use cases: dispatch,
// rate limiting, error-to-reply mapping and MarkdownV2 formatting.
package service

import "github.com/google/wire"

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewDispatcher, NewCommandService)
