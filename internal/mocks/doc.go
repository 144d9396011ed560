// Package mocks provides centralized test doubles for the store and
// service interfaces.
//
// The store mocks are in-memory fakes that honour the same contracts as the
// Postgres implementations (owner scoping, unique emails, version checks),
// so service and handler tests exercise realistic behavior. Every method can
// be overridden through its Fn field to inject failures:
//
//	users := mocks.NewMockUserStore()
//	users.UpdateFn = func(ctx context.Context, u *domain.User) error {
//	    return errors.New("database unavailable")
//	}
package mocks
