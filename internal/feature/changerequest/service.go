// Package changerequest creates change requests and moves them through
// Pending → Reviewed → Approved | Rejected.
package changerequest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"change-request-tracker/internal/domain"
	"change-request-tracker/internal/feature/summary"
	"change-request-tracker/pkg/utils"
)

const DefaultFallbackSummary = "Could not generate summary due to an error."

type Summarizer interface {
	Summarize(ctx context.Context, in summary.Input) (string, error)
}

var transitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "change_request_transitions_total",
		Help: "Applied change request status transitions",
	},
	[]string{"to"},
)

var summaryFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "change_request_summary_fallbacks_total",
	Help: "Change requests created with the fallback summary",
})

func init() { prometheus.MustRegister(transitionsTotal, summaryFallbacksTotal) }

type Options struct {
	SummaryTimeout  time.Duration
	FallbackSummary string
	Now             func() time.Time
}

type Service struct {
	repo       domain.ChangeRequestRepository
	summarizer Summarizer
	opts       Options
	log        *zap.Logger
}

func NewService(repo domain.ChangeRequestRepository, sum Summarizer, o Options, l *zap.Logger) *Service {
	if o.SummaryTimeout <= 0 {
		o.SummaryTimeout = 15 * time.Second
	}
	if o.FallbackSummary == "" {
		o.FallbackSummary = DefaultFallbackSummary
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Service{repo: repo, summarizer: sum, opts: o, log: l}
}

// Create validates in, obtains a summary (falling back on any summarizer
// failure) and persists the request as Pending.
func (s *Service) Create(ctx context.Context, in domain.NewChangeRequest) (*domain.ChangeRequest, error) {
	in = trim(in)
	if err := validate(in); err != nil {
		return nil, err
	}

	// stored precision, so the returned value matches a later read
	now := s.opts.Now().UTC().Truncate(time.Millisecond)
	cr := &domain.ChangeRequest{
		ID:                 utils.NewRequestID(now),
		Title:              in.Title,
		System:             in.System,
		Requester:          in.Requester,
		Department:         in.Department,
		Description:        in.Description,
		Reason:             in.Reason,
		Impact:             in.Impact,
		Priority:           in.Priority,
		RequestDate:        now,
		ImplementationDate: in.ImplementationDate,
		Status:             domain.StatusPending,
		Summary:            s.summarize(ctx, in),
	}
	if err := s.repo.Create(ctx, cr); err != nil {
		return nil, err
	}
	s.log.Info("change request created",
		zap.String("id", cr.ID),
		zap.String("requester", cr.Requester),
		zap.String("priority", string(cr.Priority)),
	)
	return cr, nil
}

func (s *Service) summarize(ctx context.Context, in domain.NewChangeRequest) string {
	if s.summarizer == nil {
		summaryFallbacksTotal.Inc()
		return s.opts.FallbackSummary
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.SummaryTimeout)
	defer cancel()

	text, err := s.summarizer.Summarize(ctx, summary.Input{
		Description: in.Description,
		Reason:      in.Reason,
		Impact:      in.Impact,
		System:      in.System,
	})
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		summaryFallbacksTotal.Inc()
		s.log.Warn("summary unavailable, using fallback", zap.Error(err))
		return s.opts.FallbackSummary
	}
	return text
}

// MarkReviewed moves a Pending request to Reviewed. Any other status, or an
// unknown id, is a no-op.
func (s *Service) MarkReviewed(ctx context.Context, id string) (bool, error) {
	return s.transition(ctx, id, domain.StatusReviewed, nil)
}

// Approve finalizes a non-terminal request. Blank remarks are not stored.
func (s *Service) Approve(ctx context.Context, id, remarks string) (bool, error) {
	var r *string
	if t := strings.TrimSpace(remarks); t != "" {
		r = &t
	}
	return s.transition(ctx, id, domain.StatusApproved, r)
}

// Reject finalizes a non-terminal request; remarks are mandatory.
func (s *Service) Reject(ctx context.Context, id, remarks string) (bool, error) {
	t := strings.TrimSpace(remarks)
	if t == "" {
		return false, fmt.Errorf("%w: remarks are required to reject a request", domain.ErrValidation)
	}
	return s.transition(ctx, id, domain.StatusRejected, &t)
}

// transition reports whether the status changed. Illegal moves and unknown
// ids leave the store untouched and return (false, nil).
func (s *Service) transition(ctx context.Context, id string, to domain.Status, remarks *string) (bool, error) {
	cr, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !CanTransition(cr.Status, to) {
		s.log.Debug("transition ignored",
			zap.String("id", id),
			zap.String("from", string(cr.Status)),
			zap.String("to", string(to)),
		)
		return false, nil
	}
	from := cr.Status
	cr.Status = to
	if remarks != nil {
		cr.Remarks = remarks
	}
	if err := s.repo.Update(ctx, cr); err != nil {
		return false, err
	}
	transitionsTotal.WithLabelValues(string(to)).Inc()
	s.log.Info("change request transitioned",
		zap.String("id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return true, nil
}

func (s *Service) List(ctx context.Context) ([]domain.ChangeRequest, error) { return s.repo.List(ctx) }

func (s *Service) Get(ctx context.Context, id string) (*domain.ChangeRequest, error) {
	return s.repo.FindByID(ctx, id)
}

func trim(in domain.NewChangeRequest) domain.NewChangeRequest {
	in.Title = strings.TrimSpace(in.Title)
	in.System = strings.TrimSpace(in.System)
	in.Requester = strings.TrimSpace(in.Requester)
	in.Department = strings.TrimSpace(in.Department)
	in.Description = strings.TrimSpace(in.Description)
	in.Reason = strings.TrimSpace(in.Reason)
	in.Impact = strings.TrimSpace(in.Impact)
	in.ImplementationDate = strings.TrimSpace(in.ImplementationDate)
	return in
}

func validate(in domain.NewChangeRequest) error {
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"title", in.Title},
		{"system", in.System},
		{"requester", in.Requester},
		{"department", in.Department},
		{"description", in.Description},
		{"reason", in.Reason},
		{"impact", in.Impact},
		{"implementationDate", in.ImplementationDate},
	} {
		if f.v == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	if !in.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", domain.ErrValidation, in.Priority)
	}
	return nil
}
