//go:build cucumber

package ratelimiter

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/cucumber/godog"
)

// TestTokenBucketFeatures executes the token bucket feature scenarios via godog.
func TestTokenBucketFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "token-bucket",
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{"features"},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeScenario wires step definitions for the token bucket feature tests.
func InitializeScenario(ctx *godog.ScenarioContext) {
	state := &bucketState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^the default Gemini quota table$`, state.givenDefaultTable)
	ctx.Step(`^model "([^"]+)" has no tokens left$`, state.givenExhausted)
	ctx.Step(`^I try (\d+) requests for model "([^"]+)"$`, state.tryRequests)
	ctx.Step(`^(\d+) requests? (?:are|is) admitted$`, state.admittedCount)
	ctx.Step(`^(\d+) requests? (?:are|is) denied$`, state.deniedCount)
	ctx.Step(`^(\d+) seconds pass$`, state.advance)
	ctx.Step(`^(\d+) requests? for model "([^"]+)" (?:are|is) admitted$`, state.requestsAdmitted)
	ctx.Step(`^the next request for model "([^"]+)" is denied$`, state.nextDenied)
	ctx.Step(`^model "([^"]+)" has (\d+) tokens available$`, state.tokensAvailable)
	ctx.Step(`^I wait up to (\d+) seconds for model "([^"]+)"$`, state.waitFor)
	ctx.Step(`^the acquisition times out after (\d+) seconds$`, state.timedOutAfter)
	ctx.Step(`^the acquisition succeeds after (\d+) seconds$`, state.succeededAfter)
}

// bucketState holds scenario state for the feature tests.
type bucketState struct {
	clock    *fakeClock
	registry *Registry
	admitted int
	denied   int
	acquired bool
	waited   time.Duration
}

func (s *bucketState) reset() {
	s.clock = newFakeClock()
	s.registry = nil
	s.admitted = 0
	s.denied = 0
	s.acquired = false
	s.waited = 0
}

func (s *bucketState) givenDefaultTable() error {
	s.registry = NewRegistryWithOpts(DefaultQuotaTable(), RegistryOpts{Clock: s.clock})
	return nil
}

func (s *bucketState) givenExhausted(model string) error {
	rl, err := s.registry.Get(model)
	if err != nil {
		return err
	}
	for rl.TryAcquire() {
	}
	return nil
}

func (s *bucketState) tryRequests(n int, model string) error {
	rl, err := s.registry.Get(model)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if rl.TryAcquire() {
			s.admitted++
		} else {
			s.denied++
		}
	}
	return nil
}

func (s *bucketState) admittedCount(n int) error {
	if s.admitted != n {
		return fmt.Errorf("expected %d admitted requests, got %d", n, s.admitted)
	}
	return nil
}

func (s *bucketState) deniedCount(n int) error {
	if s.denied != n {
		return fmt.Errorf("expected %d denied requests, got %d", n, s.denied)
	}
	return nil
}

func (s *bucketState) advance(seconds int) error {
	s.clock.Advance(time.Duration(seconds) * time.Second)
	return nil
}

func (s *bucketState) requestsAdmitted(n int, model string) error {
	rl, err := s.registry.Get(model)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if !rl.TryAcquire() {
			return fmt.Errorf("request %d for %s was denied", i+1, model)
		}
	}
	return nil
}

func (s *bucketState) nextDenied(model string) error {
	rl, err := s.registry.Get(model)
	if err != nil {
		return err
	}
	if rl.TryAcquire() {
		return fmt.Errorf("request for %s was admitted", model)
	}
	return nil
}

func (s *bucketState) tokensAvailable(model string, n int) error {
	rl, err := s.registry.Get(model)
	if err != nil {
		return err
	}
	if got := rl.AvailableTokens(); math.Abs(got-float64(n)) > 1e-6 {
		return fmt.Errorf("expected %d tokens for %s, got %.6f", n, model, got)
	}
	return nil
}

func (s *bucketState) waitFor(seconds int, model string) error {
	rl, err := s.registry.Get(model)
	if err != nil {
		return err
	}
	start := s.clock.Now()
	s.acquired, err = rl.Acquire(context.Background(), time.Duration(seconds)*time.Second)
	s.waited = s.clock.Now().Sub(start)
	return err
}

func (s *bucketState) timedOutAfter(seconds int) error {
	if s.acquired {
		return fmt.Errorf("expected the acquisition to time out")
	}
	return s.checkWaited(seconds)
}

func (s *bucketState) succeededAfter(seconds int) error {
	if !s.acquired {
		return fmt.Errorf("expected the acquisition to succeed")
	}
	return s.checkWaited(seconds)
}

func (s *bucketState) checkWaited(seconds int) error {
	want := time.Duration(seconds) * time.Second
	if diff := s.waited - want; diff < -time.Millisecond || diff > time.Millisecond {
		return fmt.Errorf("expected to wait %v, waited %v", want, s.waited)
	}
	return nil
}
