package orchestration

import (
	"context"
	"fmt"
	"sync"

	"github.com/fleetpilot/fleetpilot/internal/logger"
	"github.com/fleetpilot/fleetpilot/pkg/models"
)

// Simulator is an in-memory orchestration backend for local runs and
// tests. Instance health is scriptable and every mutating call is
// recorded so tests can assert on idempotence and call ordering.
type Simulator struct {
	mu       sync.Mutex
	desired  map[string]int
	fleet    map[string][]models.Instance
	seq      int
	failWith error

	// ReplaceHeals controls whether a replaced instance comes back
	// serving. Leaving a replaced instance unhealthy simulates a
	// replacement that did not resolve the problem.
	ReplaceHeals bool

	setDesiredCalls []int
	replaceCalls    []ReplaceCall
}

type ReplaceCall struct {
	InstanceID string
	Mode       ReplaceMode
}

func NewSimulator() *Simulator {
	return &Simulator{
		desired:      make(map[string]int),
		fleet:        make(map[string][]models.Instance),
		ReplaceHeals: true,
	}
}

// InitializeResource seeds a resource with count healthy instances.
func (s *Simulator) InitializeResource(resourceID string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.desired[resourceID] = count
	s.fleet[resourceID] = nil
	for i := 0; i < count; i++ {
		s.seq++
		s.fleet[resourceID] = append(s.fleet[resourceID], models.Instance{
			InstanceID: fmt.Sprintf("sim-%04d", s.seq),
			RawStatus:  "RUNNING",
		})
	}
}

// SetInstanceStatus scripts the raw status an instance reports.
func (s *Simulator) SetInstanceStatus(resourceID, instanceID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, inst := range s.fleet[resourceID] {
		if inst.InstanceID == instanceID {
			s.fleet[resourceID][i].RawStatus = status
			return
		}
	}
}

// FailWith makes every subsequent call return err until cleared with nil.
func (s *Simulator) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *Simulator) GetDesiredCount(ctx context.Context, resourceID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return 0, s.failWith
	}

	desired, ok := s.desired[resourceID]
	if !ok {
		return 0, fmt.Errorf("%w: unknown resource %s", ErrRejected, resourceID)
	}
	return desired, nil
}

func (s *Simulator) SetDesiredCount(ctx context.Context, resourceID string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return s.failWith
	}
	if count < 0 {
		return fmt.Errorf("%w: negative desired count %d", ErrRejected, count)
	}
	if _, ok := s.desired[resourceID]; !ok {
		return fmt.Errorf("%w: unknown resource %s", ErrRejected, resourceID)
	}

	s.setDesiredCalls = append(s.setDesiredCalls, count)
	s.desired[resourceID] = count

	// Grow or shrink the simulated fleet to match.
	for len(s.fleet[resourceID]) < count {
		s.seq++
		s.fleet[resourceID] = append(s.fleet[resourceID], models.Instance{
			InstanceID: fmt.Sprintf("sim-%04d", s.seq),
			RawStatus:  "RUNNING",
		})
	}
	if len(s.fleet[resourceID]) > count {
		s.fleet[resourceID] = s.fleet[resourceID][:count]
	}

	logger.WithResource(resourceID).Debugf("Simulator: desired count set to %d", count)
	return nil
}

func (s *Simulator) ListInstances(ctx context.Context, resourceID string) ([]models.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return nil, s.failWith
	}

	instances := make([]models.Instance, len(s.fleet[resourceID]))
	copy(instances, s.fleet[resourceID])
	return instances, nil
}

func (s *Simulator) ReplaceInstance(ctx context.Context, resourceID, instanceID string, mode ReplaceMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return s.failWith
	}

	for i, inst := range s.fleet[resourceID] {
		if inst.InstanceID != instanceID {
			continue
		}
		s.replaceCalls = append(s.replaceCalls, ReplaceCall{InstanceID: instanceID, Mode: mode})
		if s.ReplaceHeals {
			s.fleet[resourceID][i].RawStatus = "RUNNING"
		}
		return nil
	}

	return fmt.Errorf("%w: unknown instance %s", ErrRejected, instanceID)
}

// SetDesiredCalls returns every desired-count mutation issued so far.
func (s *Simulator) SetDesiredCalls() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	calls := make([]int, len(s.setDesiredCalls))
	copy(calls, s.setDesiredCalls)
	return calls
}

// ReplaceCalls returns every replace call issued so far.
func (s *Simulator) ReplaceCalls() []ReplaceCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	calls := make([]ReplaceCall, len(s.replaceCalls))
	copy(calls, s.replaceCalls)
	return calls
}

func (s *Simulator) Close() error {
	return nil
}
