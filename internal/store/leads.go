package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mkhedmin/mkhedmin-api/internal/models"
)

var leadSorts = map[string]string{
	"newest":   "created_at DESC",
	"oldest":   "created_at ASC",
	"priority": "CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, created_at DESC",
	"status":   "status ASC, created_at DESC",
}

var breakdownColumns = map[string]bool{"status": true, "channel": true}

type Leads struct {
	db *gorm.DB
}

func NewLeads(db *gorm.DB) *Leads { return &Leads{db: db} }

func (s *Leads) Create(ctx context.Context, l *models.Lead) error {
	return translate(s.db.WithContext(ctx).Create(l).Error)
}

// FindForFreelancer scopes the lookup to its owner; a foreign lead reads as missing.
func (s *Leads) FindForFreelancer(ctx context.Context, id, freelancerID uuid.UUID) (*models.Lead, error) {
	var l models.Lead
	err := s.db.WithContext(ctx).
		Where("id = ? AND freelancer_id = ?", id, freelancerID).
		First(&l).Error
	if err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func (s *Leads) FindByVerificationToken(ctx context.Context, token string, now time.Time) (*models.Lead, error) {
	var l models.Lead
	err := s.db.WithContext(ctx).
		Where("verification_token = ? AND is_verified = ? AND verification_expires > ?", token, false, now).
		First(&l).Error
	if err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

// Save leaves notes alone; they only grow through AppendNote.
func (s *Leads) Save(ctx context.Context, l *models.Lead) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations, "created_at", "notes").Save(l).Error)
}

func (s *Leads) AppendNote(ctx context.Context, id, freelancerID uuid.UUID, note models.LeadNote) error {
	payload, err := json.Marshal([]models.LeadNote{note})
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.Lead{}).
		Where("id = ? AND freelancer_id = ?", id, freelancerID).
		Updates(map[string]any{
			"notes": gorm.Expr("COALESCE(notes, '[]'::jsonb) || ?::jsonb", string(payload)),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Leads) Delete(ctx context.Context, id, freelancerID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND freelancer_id = ?", id, freelancerID).
		Delete(&models.Lead{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Leads) List(ctx context.Context, f models.LeadFilter) ([]models.Lead, int64, error) {
	scoped := func(ctx context.Context) *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Lead{}).Where("freelancer_id = ?", f.FreelancerID)
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.Channel != "" {
			q = q.Where("channel = ?", f.Channel)
		}
		if f.Priority != "" {
			q = q.Where("priority = ?", f.Priority)
		}
		return q
	}
	order, ok := leadSorts[f.Sort]
	if !ok {
		order = leadSorts["newest"]
	}

	var (
		rows  []models.Lead
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scoped(gctx).Order(order).Offset((f.Page - 1) * f.Limit).Limit(f.Limit).Find(&rows).Error
	})
	g.Go(func() error {
		return scoped(gctx).Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// WindowStats aggregates leads created at or after since.
func (s *Leads) WindowStats(ctx context.Context, freelancerID uuid.UUID, since time.Time) (models.LeadWindowStats, error) {
	var out models.LeadWindowStats
	err := s.db.WithContext(ctx).Model(&models.Lead{}).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE is_responded) AS responded,
			COUNT(*) FILTER (WHERE status = ?) AS converted,
			AVG(EXTRACT(EPOCH FROM (response_time - created_at)) / 3600) FILTER (WHERE is_responded AND response_time IS NOT NULL) AS avg_response_hours`,
			models.LeadConverted).
		Where("freelancer_id = ? AND created_at >= ?", freelancerID, since).
		Scan(&out).Error
	return out, err
}

// Breakdown counts all of a freelancer's leads grouped by status or channel.
func (s *Leads) Breakdown(ctx context.Context, freelancerID uuid.UUID, column string) ([]models.CountBy, error) {
	if !breakdownColumns[column] {
		return nil, fmt.Errorf("unknown breakdown column %q", column)
	}
	var rows []models.CountBy
	err := s.db.WithContext(ctx).Model(&models.Lead{}).
		Select(column+" AS bucket, COUNT(*) AS count").
		Where("freelancer_id = ?", freelancerID).
		Group(column).
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}

func (s *Leads) Recent(ctx context.Context, freelancerID uuid.UUID, n int) ([]models.Lead, error) {
	var rows []models.Lead
	err := s.db.WithContext(ctx).
		Where("freelancer_id = ?", freelancerID).
		Order("created_at DESC").
		Limit(n).
		Find(&rows).Error
	return rows, err
}
