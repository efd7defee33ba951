// Package loader provides the feature loading system.
//
// Each feature implements the Feature interface, which reports whether it is
// enabled and registers its routes on a Fiber router.
//
// # Feature Interface
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// # Manager
//
// The Manager holds the registered features. It handles:
//   - Registration of features via Register()
//   - Loading of enabled features, in registration order, via LoadAll()
//
// The import service is mounted this way, so further modules can be added
// and tested in isolation.
package loader
