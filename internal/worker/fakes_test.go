package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/cuongbtq/leadgen-crm/internal/phantombuster"
	"github.com/cuongbtq/leadgen-crm/internal/worker/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

type statusUpdate struct {
	status string
	result map[string]any
	errMsg string
}

type fakeStore struct {
	mu         sync.Mutex
	campaigns  map[string]*domain.Campaign
	claimErr   map[string]error
	targets    []string
	targetsErr error
	containers map[string]string
	updates    map[string][]statusUpdate
	released   map[string]int
	heartbeats int
}

func newFakeStore(targets ...string) *fakeStore {
	return &fakeStore{
		campaigns:  map[string]*domain.Campaign{},
		claimErr:   map[string]error{},
		targets:    targets,
		containers: map[string]string{},
		updates:    map[string][]statusUpdate{},
		released:   map[string]int{},
	}
}

func (s *fakeStore) add(c domain.Campaign) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Status == "" {
		c.Status = domain.CampaignStatusPending
	}
	s.campaigns[c.CampaignID] = &c
}

func (s *fakeStore) ClaimCampaign(_ context.Context, campaignID, workerID string) (*domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.claimErr[campaignID]; err != nil {
		return nil, err
	}
	c, ok := s.campaigns[campaignID]
	if !ok || c.Status != domain.CampaignStatusPending {
		return nil, domain.ErrCampaignAlreadyClaimed
	}
	c.Status = domain.CampaignStatusRunning
	c.WorkerID = workerID
	out := *c
	return &out, nil
}

func (s *fakeStore) GetCampaignTargets(context.Context, string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targets, s.targetsErr
}

func (s *fakeStore) SetContainerID(_ context.Context, campaignID, containerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers[campaignID] = containerID
	return nil
}

func (s *fakeStore) UpdateCampaignStatus(_ context.Context, campaignID, status string, result map[string]any, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.campaigns[campaignID]; ok {
		c.Status = status
	}
	s.updates[campaignID] = append(s.updates[campaignID], statusUpdate{status: status, result: result, errMsg: errorMsg})
	return nil
}

func (s *fakeStore) ReleaseForRetry(_ context.Context, campaignID, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[campaignID]
	if !ok || c.Status != domain.CampaignStatusRunning {
		return domain.ErrCampaignNotFound
	}
	c.Status = domain.CampaignStatusPending
	c.RetryCount++
	s.released[campaignID]++
	return nil
}

func (s *fakeStore) UpdateHeartbeat(context.Context, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeats++
	return nil
}

func (s *fakeStore) lastUpdate(campaignID string) (statusUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.updates[campaignID]
	if len(u) == 0 {
		return statusUpdate{}, false
	}
	return u[len(u)-1], true
}

func (s *fakeStore) containerOf(campaignID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.containers[campaignID]
}

// step is one scripted FetchStatus answer
type step struct {
	status string
	exit   *int
	err    error
}

type fakePhantom struct {
	mu        sync.Mutex
	launchErr error
	steps     []step
	fetches   int
	launches  []map[string]any
}

func (p *fakePhantom) Launch(_ context.Context, _ string, arguments map[string]any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.launches = append(p.launches, arguments)
	if p.launchErr != nil {
		return "", p.launchErr
	}
	return "container-1", nil
}

// FetchStatus replays steps; the last step repeats forever
func (p *fakePhantom) FetchStatus(_ context.Context, containerID string) (*phantombuster.ContainerStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.steps) == 0 {
		return &phantombuster.ContainerStatus{ID: containerID, Status: "running"}, nil
	}
	s := p.steps[min(p.fetches, len(p.steps)-1)]
	p.fetches++
	if s.err != nil {
		return nil, s.err
	}
	return &phantombuster.ContainerStatus{ID: containerID, Status: s.status, ExitCode: s.exit}, nil
}

type settlement struct {
	tag     uint64
	acked   bool
	requeue bool
}

type fakeAck struct {
	mu      sync.Mutex
	settled []settlement
}

func (a *fakeAck) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settled = append(a.settled, settlement{tag: tag, acked: true})
	return nil
}

func (a *fakeAck) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settled = append(a.settled, settlement{tag: tag, requeue: requeue})
	return nil
}

func (a *fakeAck) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAck) byTag() map[uint64]settlement {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[uint64]settlement, len(a.settled))
	for _, s := range a.settled {
		out[s.tag] = s
	}
	return out
}

type fakeBroker struct {
	deliveries chan amqp.Delivery
	qosErr     error
}

func (b *fakeBroker) Qos(int) error {
	return b.qosErr
}

func (b *fakeBroker) Consume(string) (<-chan amqp.Delivery, error) {
	if b.deliveries == nil {
		return nil, errors.New("channel closed")
	}
	return b.deliveries, nil
}

func exitCode(n int) *int { return &n }
