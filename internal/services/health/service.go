package health

import (
	"context"
	"sort"
	"time"
)

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Report is the health payload.
type Report struct {
	OK       bool              `json:"ok"`
	Backends map[string]string `json:"backends"`
	Checks   map[string]string `json:"checks,omitempty"`
}

// Service encapsulates health-related checks.
type Service struct {
	backends map[string]string
	checks   map[string]Pinger
	timeout  time.Duration
}

// NewService constructs a health service reporting the configured backends.
func NewService(backends map[string]string) *Service {
	copied := make(map[string]string, len(backends))
	for k, v := range backends {
		copied[k] = v
	}
	return &Service{
		backends: copied,
		checks:   make(map[string]Pinger),
		timeout:  2 * time.Second,
	}
}

// AddCheck registers a dependency probed on every Status call. Nil pingers are ignored.
func (s *Service) AddCheck(name string, p Pinger) {
	if p == nil {
		return
	}
	s.checks[name] = p
}

// Status probes registered dependencies and returns the aggregate payload.
func (s *Service) Status(ctx context.Context) Report {
	report := Report{OK: true, Backends: s.backends}
	if len(s.checks) == 0 {
		return report
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	report.Checks = make(map[string]string, len(names))
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.checks[name].Ping(cctx)
		cancel()
		if err != nil {
			report.OK = false
			report.Checks[name] = err.Error()
			continue
		}
		report.Checks[name] = "ok"
	}
	return report
}
