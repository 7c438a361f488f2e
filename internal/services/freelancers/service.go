// Package freelancers manages freelancer profiles, their portfolio and testimonials,
// and the public directory views built on top of them.
package freelancers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mkhedmin/mkhedmin-api/internal/apperr"
	"github.com/mkhedmin/mkhedmin-api/internal/models"
	"github.com/mkhedmin/mkhedmin-api/internal/services/search"
	"github.com/mkhedmin/mkhedmin-api/internal/store"
	"github.com/mkhedmin/mkhedmin-api/internal/utils"
	"github.com/mkhedmin/mkhedmin-api/internal/validation"
)

type Store interface {
	Create(ctx context.Context, f *models.Freelancer) error
	Save(ctx context.Context, f *models.Freelancer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Freelancer, error)
	FindBySlug(ctx context.Context, slug string) (*models.Freelancer, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Freelancer, error)
	SlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error)
	IncrementStat(ctx context.Context, id uuid.UUID, stat string) error
	IncrementSearchAppearances(ctx context.Context, ids []uuid.UUID) error
	Search(ctx context.Context, plan search.Plan) ([]models.Freelancer, int64, error)
	Featured(ctx context.Context, limit int) ([]models.Freelancer, error)
	PlatformStats(ctx context.Context) (models.PlatformStats, error)
}

const (
	defaultFeatured = 6
	maxFeatured     = 12
	maxSlugAttempts = 50
)

var (
	errProfileExists    = apperr.Conflict("PROFILE_EXISTS", "Freelancer profile already exists for this user")
	errNotFound         = apperr.NotFound("FREELANCER_NOT_FOUND", "Freelancer not found")
	errNotOwner         = apperr.Forbidden("NOT_OWNER", "You can only modify your own profile")
	errPortfolioMissing = apperr.NotFound("PORTFOLIO_ITEM_NOT_FOUND", "Portfolio item not found")
)

type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func NewService(st Store, log *slog.Logger) *Service {
	return &Service{store: st, log: log, now: time.Now}
}

// CanManage reports whether viewer sees the profile as its owner does.
func CanManage(f *models.Freelancer, viewer *models.User) bool {
	if viewer == nil {
		return false
	}
	return viewer.Role == models.RoleAdmin || f.OwnedBy(viewer.ID)
}

func (s *Service) Create(ctx context.Context, owner *models.User, in validation.FreelancerInput) (*models.Freelancer, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}

	_, err := s.store.FindByUserID(ctx, owner.ID)
	switch {
	case err == nil:
		return nil, errProfileExists
	case !errors.Is(err, store.ErrNotFound):
		return nil, apperr.Internal(err)
	}

	f := &models.Freelancer{UserID: owner.ID, Visibility: models.VisibilityPublic}
	applyProfile(f, in)
	if f.Slug, err = s.uniqueSlug(ctx, f.Name, uuid.Nil); err != nil {
		return nil, apperr.Internal(err)
	}

	if err := s.store.Create(ctx, f); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errProfileExists
		}
		return nil, apperr.Internal(err)
	}
	s.log.Info("freelancer profile created", "freelancer_id", f.ID, "slug", f.Slug)
	return f, nil
}

func (s *Service) Update(ctx context.Context, caller *models.User, id uuid.UUID, in validation.FreelancerInput) (*models.Freelancer, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	f, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	prevName := f.Name
	applyProfile(f, in)
	if f.Name != prevName {
		if f.Slug, err = s.uniqueSlug(ctx, f.Name, f.ID); err != nil {
			return nil, apperr.Internal(err)
		}
	}
	if err := s.save(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Get resolves a profile by uuid or slug. Non-public profiles exist only for
// their owner and admins, and only other viewers count as profile views.
func (s *Service) Get(ctx context.Context, idOrSlug string, viewer *models.User) (*models.Freelancer, error) {
	f, err := s.lookup(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	manager := CanManage(f, viewer)
	if !f.IsPublic() && !manager {
		return nil, errNotFound
	}
	if viewer == nil || !f.OwnedBy(viewer.ID) {
		s.bump(ctx, f.ID, models.StatProfileViews)
		f.Stats.ProfileViews++
	}
	return f, nil
}

func (s *Service) lookup(ctx context.Context, idOrSlug string) (*models.Freelancer, error) {
	var (
		f   *models.Freelancer
		err error
	)
	if id, perr := uuid.Parse(idOrSlug); perr == nil {
		f, err = s.store.FindByID(ctx, id)
	} else {
		f, err = s.store.FindBySlug(ctx, idOrSlug)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errNotFound
		}
		return nil, apperr.Internal(err)
	}
	return f, nil
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*models.Freelancer, error) {
	f, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errNotFound
		}
		return nil, apperr.Internal(err)
	}
	return f, nil
}

// owned loads a profile the caller may modify.
func (s *Service) owned(ctx context.Context, caller *models.User, id uuid.UUID) (*models.Freelancer, error) {
	f, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !f.OwnedBy(caller.ID) {
		return nil, errNotOwner
	}
	return f, nil
}

func (s *Service) save(ctx context.Context, f *models.Freelancer) error {
	if err := s.store.Save(ctx, f); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errNotFound
		}
		return apperr.Internal(err)
	}
	return nil
}

// bump increments a counter. Counters are analytics, so failures are only logged.
func (s *Service) bump(ctx context.Context, id uuid.UUID, stat string) {
	if err := s.store.IncrementStat(ctx, id, stat); err != nil {
		s.log.Warn("stat increment failed", "freelancer_id", id, "stat", stat, "err", err)
	}
}

func (s *Service) uniqueSlug(ctx context.Context, name string, self uuid.UUID) (string, error) {
	base := utils.Slugify(name)
	candidate := base
	for i := 1; i <= maxSlugAttempts; i++ {
		taken, err := s.store.SlugTaken(ctx, candidate, self)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	suffix, err := utils.RandomHex(3)
	if err != nil {
		return "", err
	}
	return base + "-" + suffix, nil
}

func (s *Service) AddPortfolioItem(ctx context.Context, caller *models.User, id uuid.UUID, in validation.PortfolioInput) (*models.PortfolioItem, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	f, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	item := portfolioItem(in)
	item.ID = uuid.New()
	item.CreatedAt = s.now()
	f.Portfolio = append(f.Portfolio, item)
	if err := s.save(ctx, f); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Service) UpdatePortfolioItem(ctx context.Context, caller *models.User, id, itemID uuid.UUID, in validation.PortfolioInput) (*models.PortfolioItem, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	f, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	i := f.PortfolioIndex(itemID)
	if i < 0 {
		return nil, errPortfolioMissing
	}
	item := portfolioItem(in)
	item.ID = itemID
	item.CreatedAt = f.Portfolio[i].CreatedAt
	f.Portfolio[i] = item
	if err := s.save(ctx, f); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Service) RemovePortfolioItem(ctx context.Context, caller *models.User, id, itemID uuid.UUID) error {
	f, err := s.owned(ctx, caller, id)
	if err != nil {
		return err
	}
	if !f.RemovePortfolioItem(itemID) {
		return errPortfolioMissing
	}
	return s.save(ctx, f)
}

// GetPortfolioItem serves one public item of a public profile and counts the view.
func (s *Service) GetPortfolioItem(ctx context.Context, id, itemID uuid.UUID) (*models.PortfolioItem, error) {
	f, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !f.IsPublic() {
		return nil, errNotFound
	}
	i := f.PortfolioIndex(itemID)
	if i < 0 || !f.Portfolio[i].IsPublic {
		return nil, errPortfolioMissing
	}
	s.bump(ctx, f.ID, models.StatPortfolioViews)
	item := f.Portfolio[i]
	return &item, nil
}

func (s *Service) SetVisibility(ctx context.Context, caller *models.User, id uuid.UUID, in validation.VisibilityInput) (*models.Freelancer, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	f, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	f.Visibility = models.Visibility(in.Visibility)
	if err := s.save(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// AddTestimonial records a visitor testimonial. It stays hidden until verified.
func (s *Service) AddTestimonial(ctx context.Context, id uuid.UUID, in validation.TestimonialInput) (*models.Testimonial, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	f, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !f.IsPublic() {
		return nil, errNotFound
	}
	t := models.Testimonial{
		ID:          uuid.New(),
		ClientName:  in.ClientName,
		Company:     in.Company,
		Rating:      in.Rating,
		Comment:     in.Comment,
		ProjectType: in.ProjectType,
		CreatedAt:   s.now(),
	}
	f.Testimonials = append(f.Testimonials, t)
	if err := s.save(ctx, f); err != nil {
		return nil, err
	}
	return &t, nil
}

// SetFlags is the moderation switch for the verified and premium badges.
func (s *Service) SetFlags(ctx context.Context, id uuid.UUID, in validation.FlagsInput) (*models.Freelancer, error) {
	f, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.IsVerified != nil {
		f.IsVerified = *in.IsVerified
	}
	if in.IsPremium != nil {
		f.IsPremium = *in.IsPremium
	}
	if err := s.save(ctx, f); err != nil {
		return nil, err
	}
	s.log.Info("freelancer flags updated", "freelancer_id", f.ID, "verified", f.IsVerified, "premium", f.IsPremium)
	return f, nil
}

type SearchResult struct {
	Freelancers []models.FreelancerSummary `json:"freelancers"`
	Pagination  models.Pagination          `json:"pagination"`
	Filters     validation.SearchInput     `json:"filters"`
}

func (s *Service) Search(ctx context.Context, in validation.SearchInput) (*SearchResult, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	plan := search.Build(in)
	rows, total, err := s.store.Search(ctx, plan)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	out := make([]models.FreelancerSummary, 0, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].Summary())
		ids = append(ids, rows[i].ID)
	}
	if err := s.store.IncrementSearchAppearances(ctx, ids); err != nil {
		s.log.Warn("search appearance increment failed", "count", len(ids), "err", err)
	}

	return &SearchResult{
		Freelancers: out,
		Pagination:  models.NewPagination(plan.Page, plan.Limit, total),
		Filters:     in,
	}, nil
}

func (s *Service) Featured(ctx context.Context, limit int) ([]models.FreelancerSummary, error) {
	if limit <= 0 {
		limit = defaultFeatured
	}
	if limit > maxFeatured {
		limit = maxFeatured
	}
	rows, err := s.store.Featured(ctx, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]models.FreelancerSummary, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].Summary())
	}
	return out, nil
}

func (s *Service) PlatformStats(ctx context.Context) (models.PlatformStats, error) {
	st, err := s.store.PlatformStats(ctx)
	if err != nil {
		return models.PlatformStats{}, apperr.Internal(err)
	}
	return st, nil
}
