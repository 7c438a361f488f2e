// Package leads handles contact requests sent to freelancers and the owner's
// follow-up workflow on them.
package leads

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/mkhedmin/mkhedmin-api/internal/apperr"
	"github.com/mkhedmin/mkhedmin-api/internal/events"
	"github.com/mkhedmin/mkhedmin-api/internal/models"
	"github.com/mkhedmin/mkhedmin-api/internal/store"
	"github.com/mkhedmin/mkhedmin-api/internal/utils"
	"github.com/mkhedmin/mkhedmin-api/internal/validation"
)

type Store interface {
	Create(ctx context.Context, l *models.Lead) error
	FindForFreelancer(ctx context.Context, id, freelancerID uuid.UUID) (*models.Lead, error)
	FindByVerificationToken(ctx context.Context, token string, now time.Time) (*models.Lead, error)
	Save(ctx context.Context, l *models.Lead) error
	AppendNote(ctx context.Context, id, freelancerID uuid.UUID, note models.LeadNote) error
	Delete(ctx context.Context, id, freelancerID uuid.UUID) error
	List(ctx context.Context, f models.LeadFilter) ([]models.Lead, int64, error)
	WindowStats(ctx context.Context, freelancerID uuid.UUID, since time.Time) (models.LeadWindowStats, error)
	Breakdown(ctx context.Context, freelancerID uuid.UUID, column string) ([]models.CountBy, error)
	Recent(ctx context.Context, freelancerID uuid.UUID, n int) ([]models.Lead, error)
}

type Profiles interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Freelancer, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Freelancer, error)
	IncrementStat(ctx context.Context, id uuid.UUID, stat string) error
}

// Notifier pushes realtime messages to a connected user.
type Notifier interface {
	SendToUser(userID uuid.UUID, data any)
}

const (
	tokenBytes       = 32
	defaultTimeframe = 30
	maxTimeframe     = 365
	recentLeads      = 5
)

var (
	errFreelancerNotFound = apperr.NotFound("FREELANCER_NOT_FOUND", "Freelancer not found")
	errProfileNotFound    = apperr.NotFound("PROFILE_NOT_FOUND", "Freelancer profile not found")
	errLeadNotFound       = apperr.NotFound("LEAD_NOT_FOUND", "Lead not found")
	errInvalidToken       = apperr.BadRequest("INVALID_VERIFICATION_TOKEN", "Invalid or expired verification token")
	errInvalidStatus      = apperr.BadRequest("INVALID_STATUS", "Invalid status")
	errInvalidPriority    = apperr.BadRequest("INVALID_PRIORITY", "Invalid priority")
	errContentRequired    = apperr.BadRequest("CONTENT_REQUIRED", "Note content is required")
	errInvalidTimeframe   = apperr.BadRequest("INVALID_TIMEFRAME", "Timeframe must be between 1 and 365 days")
)

type Service struct {
	store     Store
	profiles  Profiles
	publisher events.LeadPublisher
	notifier  Notifier
	log       *slog.Logger
	now       func() time.Time
}

func NewService(st Store, profiles Profiles, publisher events.LeadPublisher, notifier Notifier, log *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{store: st, profiles: profiles, publisher: publisher, notifier: notifier, log: log, now: time.Now}
}

type VerificationNotice struct {
	Required bool   `json:"required"`
	Message  string `json:"message"`
}

type CreateResult struct {
	Message      string              `json:"message"`
	Lead         models.LeadSummary  `json:"lead"`
	Verification *VerificationNotice `json:"verification,omitempty"`
}

// Create files a contact request against a public profile. Form leads stay
// unverified until their emailed token is confirmed; direct channels are
// verified on arrival.
func (s *Service) Create(ctx context.Context, in validation.LeadInput, meta models.RequestMeta) (*CreateResult, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	freelancerID, err := uuid.Parse(in.FreelancerID)
	if err != nil {
		return nil, errFreelancerNotFound
	}
	f, err := s.profiles.FindByID(ctx, freelancerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errFreelancerNotFound
		}
		return nil, apperr.Internal(err)
	}
	if !f.IsPublic() {
		return nil, errFreelancerNotFound
	}

	now := s.now()
	lead := newLead(in, f.ID, meta)
	var token string
	if lead.Channel == models.ChannelForm {
		if token, err = utils.RandomHex(tokenBytes); err != nil {
			return nil, apperr.Internal(err)
		}
		lead.RequireVerification(token, now)
	} else {
		lead.IsVerified = true
	}

	if err := s.store.Create(ctx, lead); err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.profiles.IncrementStat(ctx, f.ID, models.StatContactClicks); err != nil {
		s.log.Warn("contact click increment failed", "freelancer_id", f.ID, "err", err)
	}

	s.announce(lead, f, token)

	res := &CreateResult{Message: "Contact request submitted successfully", Lead: lead.Summary()}
	if !lead.IsVerified {
		res.Verification = &VerificationNotice{
			Required: true,
			Message:  "Please check your email to verify your contact request",
		}
	}
	return res, nil
}

// announce fans a new lead out to the event bus and the owner's open sockets.
// Delivery is best effort; the lead is already stored.
func (s *Service) announce(lead *models.Lead, f *models.Freelancer, token string) {
	if err := s.publisher.PublishLeadCreated(lead); err != nil {
		s.log.Warn("lead.created publish failed", "lead_id", lead.ID, "err", err)
	}
	if token != "" {
		if err := s.publisher.PublishVerificationRequested(lead, token); err != nil {
			s.log.Warn("lead.verification_requested publish failed", "lead_id", lead.ID, "err", err)
		}
	}
	if s.notifier != nil {
		s.notifier.SendToUser(f.UserID, map[string]any{
			"type": events.SubjectLeadCreated,
			"lead": lead.Summary(),
			"name": lead.Name,
		})
	}
}

func newLead(in validation.LeadInput, freelancerID uuid.UUID, meta models.RequestMeta) *models.Lead {
	l := &models.Lead{
		FreelancerID: freelancerID,
		Channel:      models.LeadChannel(in.Channel),
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Message:      in.Message,
		ProjectType:  in.ProjectType,
		Timeline:     in.Timeline,
		Urgency:      models.Urgency(in.Urgency),
		Status:       models.LeadNew,
		Priority:     models.PriorityMedium,
		Source:       models.LeadSource(in.Source),
		Meta:         meta,
	}
	if b := in.Budget; b != nil {
		l.Budget = models.Budget{Min: b.Min, Max: b.Max, Currency: b.Currency}
	}
	var utm models.UTM
	if u := in.UTM; u != nil {
		utm = models.UTM{Source: u.Source, Medium: u.Medium, Campaign: u.Campaign, Term: u.Term, Content: u.Content}
	}
	l.UTM = datatypes.NewJSONType(utm)
	return l
}

type VerifyResult struct {
	Message string             `json:"message"`
	Lead    models.LeadSummary `json:"lead"`
}

func (s *Service) Verify(ctx context.Context, token string) (*VerifyResult, error) {
	if token == "" {
		return nil, errInvalidToken
	}
	now := s.now()
	lead, err := s.store.FindByVerificationToken(ctx, token, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errInvalidToken
		}
		return nil, apperr.Internal(err)
	}
	if !lead.VerificationPending(token, now) {
		return nil, errInvalidToken
	}
	lead.Verify()
	if err := s.store.Save(ctx, lead); err != nil {
		return nil, apperr.Internal(err)
	}
	return &VerifyResult{Message: "Email verified successfully", Lead: lead.Summary()}, nil
}

// profileOf resolves the caller's own freelancer profile.
func (s *Service) profileOf(ctx context.Context, caller *models.User) (*models.Freelancer, error) {
	f, err := s.profiles.FindByUserID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errProfileNotFound
		}
		return nil, apperr.Internal(err)
	}
	return f, nil
}

func (s *Service) owned(ctx context.Context, caller *models.User, id uuid.UUID) (*models.Lead, error) {
	f, err := s.profileOf(ctx, caller)
	if err != nil {
		return nil, err
	}
	l, err := s.store.FindForFreelancer(ctx, id, f.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errLeadNotFound
		}
		return nil, apperr.Internal(err)
	}
	return l, nil
}

type ListResult struct {
	Leads      []models.LeadView        `json:"leads"`
	Pagination models.Pagination        `json:"pagination"`
	Filters    validation.LeadListInput `json:"filters"`
}

func (s *Service) List(ctx context.Context, caller *models.User, in validation.LeadListInput) (*ListResult, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	f, err := s.profileOf(ctx, caller)
	if err != nil {
		return nil, err
	}
	rows, total, err := s.store.List(ctx, models.LeadFilter{
		FreelancerID: f.ID,
		Status:       in.Status,
		Channel:      in.Channel,
		Priority:     in.Priority,
		Sort:         in.Sort,
		Page:         in.Page,
		Limit:        in.Limit,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	now := s.now()
	views := make([]models.LeadView, 0, len(rows))
	for i := range rows {
		views = append(views, rows[i].View(now))
	}
	return &ListResult{
		Leads:      views,
		Pagination: models.NewPagination(in.Page, in.Limit, total),
		Filters:    in,
	}, nil
}

func (s *Service) Get(ctx context.Context, caller *models.User, id uuid.UUID) (models.LeadView, error) {
	l, err := s.owned(ctx, caller, id)
	if err != nil {
		return models.LeadView{}, err
	}
	return l.View(s.now()), nil
}

// UpdateStatus sets any status. Moving a new lead to contacted records the response.
func (s *Service) UpdateStatus(ctx context.Context, caller *models.User, id uuid.UUID, status string) (*models.Lead, error) {
	st := models.LeadStatus(status)
	if !st.Valid() {
		return nil, errInvalidStatus
	}
	l, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	l.SetStatus(st, s.now())
	if err := s.store.Save(ctx, l); err != nil {
		return nil, apperr.Internal(err)
	}
	return l, nil
}

func (s *Service) UpdatePriority(ctx context.Context, caller *models.User, id uuid.UUID, priority string) (*models.Lead, error) {
	p := models.LeadPriority(priority)
	if !p.Valid() {
		return nil, errInvalidPriority
	}
	l, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	l.Priority = p
	if err := s.store.Save(ctx, l); err != nil {
		return nil, apperr.Internal(err)
	}
	return l, nil
}

// AddNote appends a note signed with the caller's email and returns the full list.
func (s *Service) AddNote(ctx context.Context, caller *models.User, id uuid.UUID, in validation.NoteInput) ([]models.LeadNote, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	note, err := models.NewLeadNote(in.Content, caller.Email, s.now())
	if err != nil {
		return nil, errContentRequired
	}
	l, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.AppendNote(ctx, l.ID, l.FreelancerID, note); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errLeadNotFound
		}
		return nil, apperr.Internal(err)
	}
	return append(l.Notes, note), nil
}

func (s *Service) Delete(ctx context.Context, caller *models.User, id uuid.UUID) error {
	f, err := s.profileOf(ctx, caller)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id, f.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errLeadNotFound
		}
		return apperr.Internal(err)
	}
	return nil
}

type WindowStats struct {
	Total           int64    `json:"total"`
	Responded       int64    `json:"responded"`
	Converted       int64    `json:"converted"`
	AvgResponseTime *float64 `json:"avgResponseTime"`
}

type Breakdown struct {
	Status  map[string]int64 `json:"status"`
	Channel map[string]int64 `json:"channel"`
}

type Activity struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	Channel   models.LeadChannel `json:"channel"`
	Status    models.LeadStatus  `json:"status"`
	Urgency   models.Urgency     `json:"urgency"`
	CreatedAt time.Time          `json:"createdAt"`
}

type StatsResult struct {
	Stats          WindowStats `json:"stats"`
	Breakdown      Breakdown   `json:"breakdown"`
	RecentActivity []Activity  `json:"recentActivity"`
	Timeframe      int         `json:"timeframe"`
}

// Stats aggregates the last timeframe days. Breakdowns cover the full history.
// A timeframe of 0 means the default window.
func (s *Service) Stats(ctx context.Context, caller *models.User, timeframe int) (*StatsResult, error) {
	if timeframe == 0 {
		timeframe = defaultTimeframe
	}
	if timeframe < 1 || timeframe > maxTimeframe {
		return nil, errInvalidTimeframe
	}
	f, err := s.profileOf(ctx, caller)
	if err != nil {
		return nil, err
	}

	since := s.now().AddDate(0, 0, -timeframe)
	window, err := s.store.WindowStats(ctx, f.ID, since)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	byStatus, err := s.store.Breakdown(ctx, f.ID, "status")
	if err != nil {
		return nil, apperr.Internal(err)
	}
	byChannel, err := s.store.Breakdown(ctx, f.ID, "channel")
	if err != nil {
		return nil, apperr.Internal(err)
	}
	recent, err := s.store.Recent(ctx, f.ID, recentLeads)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	out := &StatsResult{
		Stats: WindowStats{
			Total:     window.Total,
			Responded: window.Responded,
			Converted: window.Converted,
		},
		Breakdown: Breakdown{
			Status:  models.CountMap(byStatus),
			Channel: models.CountMap(byChannel),
		},
		RecentActivity: make([]Activity, 0, len(recent)),
		Timeframe:      timeframe,
	}
	if h := window.AvgResponseHours; h != nil {
		rounded := math.Round(*h*10) / 10
		out.Stats.AvgResponseTime = &rounded
	}
	for _, l := range recent {
		out.RecentActivity = append(out.RecentActivity, Activity{
			ID:        l.ID,
			Name:      l.Name,
			Channel:   l.Channel,
			Status:    l.Status,
			Urgency:   l.Urgency,
			CreatedAt: l.CreatedAt,
		})
	}
	return out, nil
}
