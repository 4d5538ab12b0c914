package testutil

import "testing"

// Given and friends name subtests after the scenario they set up, which
// keeps `go test -v` output readable without a BDD framework.
func Given(t *testing.T, scenario string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+scenario, fn)
}

func When(t *testing.T, action string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+action, fn)
}

func Then(t *testing.T, outcome string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+outcome, fn)
}
