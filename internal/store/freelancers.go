package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mkhedmin/mkhedmin-api/internal/models"
	"github.com/mkhedmin/mkhedmin-api/internal/services/search"
)

// counters are written only through IncrementStat so a profile Save never rolls them back.
var counters = map[string]bool{
	models.StatProfileViews:      true,
	models.StatContactClicks:     true,
	models.StatPortfolioViews:    true,
	models.StatSearchAppearances: true,
}

var profileSaveOmits = []string{
	clause.Associations,
	"created_at",
	models.StatProfileViews,
	models.StatContactClicks,
	models.StatPortfolioViews,
	models.StatSearchAppearances,
}

const topCities = 10

type Freelancers struct {
	db *gorm.DB
}

func NewFreelancers(db *gorm.DB) *Freelancers { return &Freelancers{db: db} }

func (s *Freelancers) Create(ctx context.Context, f *models.Freelancer) error {
	return translate(s.db.WithContext(ctx).Create(f).Error)
}

func (s *Freelancers) Save(ctx context.Context, f *models.Freelancer) error {
	return translate(s.db.WithContext(ctx).Omit(profileSaveOmits...).Save(f).Error)
}

func (s *Freelancers) FindByID(ctx context.Context, id uuid.UUID) (*models.Freelancer, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *Freelancers) FindBySlug(ctx context.Context, slug string) (*models.Freelancer, error) {
	return s.first(ctx, "slug = ?", slug)
}

func (s *Freelancers) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Freelancer, error) {
	return s.first(ctx, "user_id = ?", userID)
}

func (s *Freelancers) first(ctx context.Context, query string, args ...any) (*models.Freelancer, error) {
	var f models.Freelancer
	if err := s.db.WithContext(ctx).Where(query, args...).First(&f).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

// SlugTaken ignores the profile identified by except, so a profile never collides with itself.
func (s *Freelancers) SlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Freelancer{}).
		Where("slug = ? AND id <> ?", slug, except).
		Count(&n).Error
	return n > 0, translate(err)
}

func (s *Freelancers) IncrementStat(ctx context.Context, id uuid.UUID, stat string) error {
	if !counters[stat] {
		return fmt.Errorf("unknown stat %q", stat)
	}
	res := s.db.WithContext(ctx).Model(&models.Freelancer{}).
		Where("id = ?", id).
		UpdateColumn(stat, gorm.Expr(stat+" + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Freelancers) IncrementSearchAppearances(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Freelancer{}).
		Where("id IN ?", ids).
		UpdateColumn(models.StatSearchAppearances, gorm.Expr(models.StatSearchAppearances+" + ?", 1)).Error
}

// Search runs the page fetch and the total count of one plan side by side.
func (s *Freelancers) Search(ctx context.Context, plan search.Plan) ([]models.Freelancer, int64, error) {
	scoped := func(ctx context.Context) *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Freelancer{})
		for _, c := range plan.Conditions {
			q = q.Where(c.SQL, c.Args...)
		}
		return q
	}

	var (
		rows  []models.Freelancer
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scoped(gctx).
			Order(clause.OrderBy{Expression: clause.Expr{SQL: plan.Order.SQL, Vars: plan.Order.Args, WithoutParentheses: true}}).
			Offset(plan.Offset).
			Limit(plan.Limit).
			Find(&rows).Error
	})
	g.Go(func() error {
		return scoped(gctx).Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (s *Freelancers) Featured(ctx context.Context, limit int) ([]models.Freelancer, error) {
	var rows []models.Freelancer
	err := s.db.WithContext(ctx).
		Where("visibility = ?", models.VisibilityPublic).
		Order("is_premium DESC, is_verified DESC, stats_profile_views DESC, created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (s *Freelancers) PlatformStats(ctx context.Context) (models.PlatformStats, error) {
	var out models.PlatformStats
	public := func(ctx context.Context) *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Freelancer{}).Where("visibility = ?", models.VisibilityPublic)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return public(gctx).Count(&out.TotalFreelancers).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Lead{}).Count(&out.TotalLeads).Error
	})
	g.Go(func() error {
		return public(gctx).
			Select("category AS bucket, COUNT(*) AS count").
			Group("category").
			Order("count DESC").
			Scan(&out.ByCategory).Error
	})
	g.Go(func() error {
		return public(gctx).
			Select("location_city AS bucket, COUNT(*) AS count").
			Where("location_city <> ''").
			Group("location_city").
			Order("count DESC").
			Limit(topCities).
			Scan(&out.TopCities).Error
	})
	if err := g.Wait(); err != nil {
		return models.PlatformStats{}, err
	}
	return out, nil
}
