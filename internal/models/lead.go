package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LeadChannel string

const (
	ChannelWhatsapp LeadChannel = "whatsapp"
	ChannelPhone    LeadChannel = "phone"
	ChannelEmail    LeadChannel = "email"
	ChannelForm     LeadChannel = "form"
)

type LeadStatus string

const (
	LeadNew        LeadStatus = "new"
	LeadContacted  LeadStatus = "contacted"
	LeadInProgress LeadStatus = "in_progress"
	LeadQualified  LeadStatus = "qualified"
	LeadConverted  LeadStatus = "converted"
	LeadRejected   LeadStatus = "rejected"
	LeadClosed     LeadStatus = "closed"
)

var LeadStatuses = []LeadStatus{LeadNew, LeadContacted, LeadInProgress, LeadQualified, LeadConverted, LeadRejected, LeadClosed}

func (s LeadStatus) Valid() bool {
	for _, v := range LeadStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type LeadPriority string

const (
	PriorityLow    LeadPriority = "low"
	PriorityMedium LeadPriority = "medium"
	PriorityHigh   LeadPriority = "high"
)

func (p LeadPriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

type LeadSource string

const (
	SourceDirect   LeadSource = "direct"
	SourceSearch   LeadSource = "search"
	SourceReferral LeadSource = "referral"
	SourceSocial   LeadSource = "social"
	SourceOther    LeadSource = "other"
)

// VerificationTTL bounds how long a form lead can be confirmed.
const VerificationTTL = 24 * time.Hour

var ErrEmptyNote = errors.New("note content is empty")

type Budget struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Currency string   `gorm:"type:varchar(3)" json:"currency,omitempty"`
}

type UTM struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Term     string `json:"term,omitempty"`
	Content  string `json:"content,omitempty"`
}

type RequestMeta struct {
	IP        string `gorm:"type:varchar(64)" json:"ip,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
}

type LeadNote struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// internal/models/lead.go
type Lead struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FreelancerID uuid.UUID `gorm:"type:uuid;index;not null" json:"freelancerId"`

	Channel LeadChannel `gorm:"type:varchar(20);index;not null" json:"channel"`
	Name    string      `gorm:"type:varchar(100);not null" json:"name"`
	Email   string      `gorm:"type:varchar(320)" json:"email,omitempty"`
	Phone   string      `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Message string      `gorm:"type:text;not null" json:"message"`

	ProjectType string  `gorm:"type:varchar(100)" json:"projectType,omitempty"`
	Budget      Budget  `gorm:"embedded;embeddedPrefix:budget_" json:"budget"`
	Timeline    string  `gorm:"type:varchar(100)" json:"timeline,omitempty"`
	Urgency     Urgency `gorm:"type:varchar(10)" json:"urgency"`

	Status   LeadStatus   `gorm:"type:varchar(20);index;not null" json:"status"`
	Priority LeadPriority `gorm:"type:varchar(10);not null" json:"priority"`

	Source LeadSource              `gorm:"type:varchar(20)" json:"source"`
	UTM    datatypes.JSONType[UTM] `gorm:"column:utm" json:"utm"`
	Meta   RequestMeta             `gorm:"embedded;embeddedPrefix:meta_" json:"meta"`

	Notes datatypes.JSONSlice[LeadNote] `json:"notes"`

	IsResponded  bool       `gorm:"not null" json:"isResponded"`
	ResponseTime *time.Time `json:"responseTime,omitempty"`

	IsVerified          bool       `gorm:"not null" json:"isVerified"`
	VerificationToken   *string    `gorm:"type:varchar(64);index" json:"-"`
	VerificationExpires *time.Time `json:"-"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// MarkAsResponded records the first response only. A new lead moves to contacted.
func (l *Lead) MarkAsResponded(now time.Time) bool {
	if l.IsResponded {
		return false
	}
	l.IsResponded = true
	t := now
	l.ResponseTime = &t
	if l.Status == LeadNew {
		l.Status = LeadContacted
	}
	return true
}

// SetStatus applies an explicit status change. new -> contacted counts as a response.
func (l *Lead) SetStatus(status LeadStatus, now time.Time) {
	if l.Status == LeadNew && status == LeadContacted {
		l.MarkAsResponded(now)
		return
	}
	l.Status = status
}

// RequireVerification arms a one-time token valid for VerificationTTL.
func (l *Lead) RequireVerification(token string, now time.Time) {
	exp := now.Add(VerificationTTL)
	l.IsVerified = false
	l.VerificationToken = &token
	l.VerificationExpires = &exp
}

// VerificationPending reports whether token can still confirm the lead.
func (l *Lead) VerificationPending(token string, now time.Time) bool {
	if l.IsVerified || l.VerificationToken == nil || l.VerificationExpires == nil {
		return false
	}
	return *l.VerificationToken == token && now.Before(*l.VerificationExpires)
}

func (l *Lead) Verify() {
	l.IsVerified = true
	l.VerificationToken = nil
	l.VerificationExpires = nil
}

func NewLeadNote(content, author string, now time.Time) (LeadNote, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return LeadNote{}, ErrEmptyNote
	}
	return LeadNote{ID: uuid.New(), Content: content, Author: author, CreatedAt: now}, nil
}

func (l *Lead) AgeInHours(now time.Time) int {
	return int(now.Sub(l.CreatedAt).Hours())
}

// ResponseTimeInHours is undefined until the lead has been responded to.
func (l *Lead) ResponseTimeInHours() (int, bool) {
	if l.ResponseTime == nil {
		return 0, false
	}
	return int(l.ResponseTime.Sub(l.CreatedAt).Hours()), true
}

type LeadSummary struct {
	ID         uuid.UUID   `json:"id"`
	Status     LeadStatus  `json:"status"`
	Channel    LeadChannel `json:"channel"`
	IsVerified bool        `json:"isVerified"`
	CreatedAt  time.Time   `json:"createdAt"`
}

func (l *Lead) Summary() LeadSummary {
	return LeadSummary{ID: l.ID, Status: l.Status, Channel: l.Channel, IsVerified: l.IsVerified, CreatedAt: l.CreatedAt}
}

// LeadView adds the derived hour counters to a lead for its owner.
type LeadView struct {
	*Lead
	AgeInHours          int  `json:"ageInHours"`
	ResponseTimeInHours *int `json:"responseTimeInHours,omitempty"`
}

func (l *Lead) View(now time.Time) LeadView {
	v := LeadView{Lead: l, AgeInHours: l.AgeInHours(now)}
	if h, ok := l.ResponseTimeInHours(); ok {
		v.ResponseTimeInHours = &h
	}
	return v
}
