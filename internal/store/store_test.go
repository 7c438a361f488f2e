package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"not found", gorm.ErrRecordNotFound, ErrNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound), ErrNotFound},
		{"duplicate", gorm.ErrDuplicatedKey, ErrDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, translate(tt.in))
		})
	}

	other := errors.New("boom")
	assert.Same(t, other, translate(other))
}

func TestIncrementStat_RejectsUnknownColumn(t *testing.T) {
	s := NewFreelancers(nil)
	err := s.IncrementStat(context.Background(), uuid.New(), "is_premium")
	assert.EqualError(t, err, `unknown stat "is_premium"`)
}

func TestIncrementSearchAppearances_NoIDs(t *testing.T) {
	s := NewFreelancers(nil)
	assert.NoError(t, s.IncrementSearchAppearances(context.Background(), nil))
}

func TestBreakdown_RejectsUnknownColumn(t *testing.T) {
	s := NewLeads(nil)
	_, err := s.Breakdown(context.Background(), uuid.New(), "email")
	assert.Error(t, err)
}

func TestLeadSorts(t *testing.T) {
	for _, k := range []string{"newest", "oldest", "priority", "status"} {
		assert.Contains(t, leadSorts, k)
	}
}
