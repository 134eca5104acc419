package workflows

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/kyotoapp/nextdest/internal/adapters/memory"
	"github.com/kyotoapp/nextdest/internal/core/domain"
	"github.com/kyotoapp/nextdest/internal/core/selector"
)

type constRand float64

func (c constRand) Float64() float64 { return float64(c) }

type recordingPublisher struct {
	mu        sync.Mutex
	err       error
	published []*domain.Selection
}

func (p *recordingPublisher) PublishSelection(_ context.Context, sel *domain.Selection) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, sel)
	return p.err
}

type DrawWorkflowSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env *testsuite.TestWorkflowEnvironment
}

func TestDrawWorkflow(t *testing.T) {
	suite.Run(t, new(DrawWorkflowSuite))
}

func (s *DrawWorkflowSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	s.env.RegisterWorkflow(DrawWorkflow)
}

func (s *DrawWorkflowSuite) AfterTest(_, _ string) {
	s.env.AssertExpectations(s.T())
}

func (s *DrawWorkflowSuite) register(points []domain.Point, pub *recordingPublisher, r float64) {
	acts := &DrawActivities{
		Candidates: memory.NewCandidateRepo(points),
		Params:     selector.DefaultParams(),
		Rand:       constRand(r),
	}
	if pub != nil {
		acts.Publisher = pub
	}
	s.env.RegisterActivity(acts)
}

func scenario() []domain.Point {
	return []domain.Point{
		domain.NewPoint("Kinkaku-ji", 35.0221, 135.4345),
		domain.NewPoint("Kiyomizu-dera", 34.5940, 135.4704),
	}
}

var origin = domain.GeoPoint{Lat: 35.0, Lon: 135.45}

func (s *DrawWorkflowSuite) TestDrawsNearbyPoint() {
	pub := &recordingPublisher{}
	s.register(scenario(), pub, 0.5)

	s.env.ExecuteWorkflow(DrawWorkflow, DrawInput{Origin: origin})

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var sel domain.Selection
	s.NoError(s.env.GetWorkflowResult(&sel))
	s.Equal("Kinkaku-ji", sel.Point.Name)
	s.InDelta(0.90, sel.Point.Weight, 0.01)
	s.Len(sel.Candidates, 2)
	s.Equal(origin, sel.Origin)
	s.False(sel.SelectedAt.IsZero())
	s.Len(pub.published, 1)
}

func (s *DrawWorkflowSuite) TestHighDrawReachesFarPoint() {
	s.register(scenario(), &recordingPublisher{}, 0.95)

	s.env.ExecuteWorkflow(DrawWorkflow, DrawInput{Origin: origin})

	var sel domain.Selection
	s.NoError(s.env.GetWorkflowResult(&sel))
	s.Equal("Kiyomizu-dera", sel.Point.Name)
}

func (s *DrawWorkflowSuite) TestWithoutPublisher() {
	s.register(scenario(), nil, 0.5)

	s.env.ExecuteWorkflow(DrawWorkflow, DrawInput{Origin: origin})

	s.NoError(s.env.GetWorkflowError())
}

func (s *DrawWorkflowSuite) TestAnnounceFailureKeepsSelection() {
	pub := &recordingPublisher{err: errors.New("broker down")}
	s.register(scenario(), pub, 0.5)

	s.env.ExecuteWorkflow(DrawWorkflow, DrawInput{Origin: origin})

	s.NoError(s.env.GetWorkflowError())
	var sel domain.Selection
	s.NoError(s.env.GetWorkflowResult(&sel))
	s.Equal("Kinkaku-ji", sel.Point.Name)
	s.Len(pub.published, 3, "announcement retried up to the attempt limit")
}

func (s *DrawWorkflowSuite) TestEmptyCandidateSet() {
	s.register(nil, &recordingPublisher{}, 0.5)

	s.env.ExecuteWorkflow(DrawWorkflow, DrawInput{Origin: origin})

	err := s.env.GetWorkflowError()
	s.Error(err)
	var appErr *temporal.ApplicationError
	s.True(errors.As(err, &appErr))
	s.Equal(ErrTypeNoCandidates, appErr.Type())
}

func (s *DrawWorkflowSuite) TestInvalidOrigin() {
	s.register(scenario(), &recordingPublisher{}, 0.5)

	s.env.ExecuteWorkflow(DrawWorkflow, DrawInput{Origin: domain.GeoPoint{Lat: 120, Lon: 0}})

	err := s.env.GetWorkflowError()
	s.Error(err)
	var appErr *temporal.ApplicationError
	s.True(errors.As(err, &appErr))
	s.Equal(ErrTypeConfiguration, appErr.Type())
}

func TestDrawDestination_EmptyIsNonRetryable(t *testing.T) {
	acts := &DrawActivities{Params: selector.DefaultParams(), Rand: constRand(0.5)}
	_, err := acts.DrawDestination(context.Background(), origin, nil)
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected application error, got %v", err)
	}
	if !appErr.NonRetryable() {
		t.Error("expected non-retryable error")
	}
}
