package testutil

import "testing"

// Steps narrates a scenario. Steps run in order inside one subtest so later
// steps can rely on state built by earlier ones.
type Steps struct {
	t *testing.T
}

// Scenario runs fn as a subtest named after the behaviour under test.
func Scenario(t *testing.T, name string, fn func(t *testing.T, s Steps)) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		fn(t, Steps{t: t})
	})
}

func (s Steps) Given(desc string, fn func()) { s.step("Given", desc, fn) }
func (s Steps) When(desc string, fn func())  { s.step("When", desc, fn) }
func (s Steps) Then(desc string, fn func())  { s.step("Then", desc, fn) }
func (s Steps) And(desc string, fn func())   { s.step("And", desc, fn) }

func (s Steps) step(keyword, desc string, fn func()) {
	s.t.Helper()
	s.t.Logf("%s %s", keyword, desc)
	fn()
	if s.t.Failed() {
		s.t.FailNow()
	}
}
