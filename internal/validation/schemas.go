package validation

import (
	"strings"
	"time"
)

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", ".", "")

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func defaultString(s *string, def string) {
	*s = strings.TrimSpace(*s)
	if *s == "" {
		*s = def
	}
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// ---- auth ----

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,min=6,max=128,strong_password"`
	Language string `json:"language" validate:"oneof=ar fr en"`
}

func (in *RegisterInput) Normalize() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	defaultString(&in.Language, "fr")
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (in *LoginInput) Normalize() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

type NotificationsInput struct {
	Email *bool `json:"email"`
	SMS   *bool `json:"sms"`
}

type PreferencesInput struct {
	Language      *string             `json:"language" validate:"omitempty,oneof=ar fr en"`
	Notifications *NotificationsInput `json:"notifications"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=128,strong_password"`
}

// ---- freelancer profile ----

type CoordinatesInput struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

type LocationInput struct {
	City         string            `json:"city" validate:"required,min=2,max=120"`
	Region       string            `json:"region" validate:"required,min=2,max=120"`
	Neighborhood string            `json:"neighborhood" validate:"max=120"`
	Coordinates  *CoordinatesInput `json:"coordinates"`
}

type RateInput struct {
	Type            string   `json:"type" validate:"required,oneof=hourly daily project negotiable"`
	HourlyRate      *float64 `json:"hourlyRate" validate:"omitempty,gte=0,lte=10000"`
	DailyRate       *float64 `json:"dailyRate" validate:"omitempty,gte=0,lte=50000"`
	ProjectStartsAt *float64 `json:"projectStartsAt" validate:"omitempty,gte=0"`
	Currency        string   `json:"currency" validate:"oneof=MAD"`
	IsPublic        *bool    `json:"isPublic"`
}

type LanguageInput struct {
	Code  string `json:"code" validate:"required,oneof=ar fr en es"`
	Level string `json:"level" validate:"required,oneof=basic intermediate fluent native"`
}

type SocialInput struct {
	LinkedIn  string `json:"linkedin" validate:"omitempty,url"`
	GitHub    string `json:"github" validate:"omitempty,url"`
	Behance   string `json:"behance" validate:"omitempty,url"`
	Dribbble  string `json:"dribbble" validate:"omitempty,url"`
	Instagram string `json:"instagram" validate:"omitempty,url"`
	Twitter   string `json:"twitter" validate:"omitempty,url"`
}

type ContactsInput struct {
	Whatsapp string       `json:"whatsapp" validate:"omitempty,ma_phone"`
	Phone    string       `json:"phone" validate:"omitempty,ma_phone"`
	Email    string       `json:"email" validate:"omitempty,email,max=320"`
	Website  string       `json:"website" validate:"omitempty,url"`
	Social   *SocialInput `json:"social"`
}

type SEOInput struct {
	Keywords        []string `json:"keywords" validate:"max=20,dive,max=50"`
	MetaDescription string   `json:"metaDescription" validate:"max=160"`
	OgImage         string   `json:"ogImage" validate:"omitempty,url"`
}

type FreelancerInput struct {
	Name          string          `json:"name" validate:"required,min=2,max=100"`
	Title         string          `json:"title" validate:"required,min=5,max=200"`
	Avatar        string          `json:"avatar" validate:"omitempty,url"`
	Category      string          `json:"category" validate:"required,oneof=development design video photography 3d marketing writing other"`
	Subcategories []string        `json:"subcategories" validate:"max=5,dive,max=50"`
	Stacks        []string        `json:"stacks" validate:"max=15,dive,max=50"`
	Experience    string          `json:"experience" validate:"oneof=junior mid senior expert"`
	Location      LocationInput   `json:"location"`
	Mode          string          `json:"mode" validate:"oneof=remote hybrid onsite"`
	Rate          *RateInput      `json:"rate"`
	Availability  string          `json:"availability" validate:"oneof=now 1w 1m customDate unavailable"`
	AvailableFrom *time.Time      `json:"availableFrom" validate:"required_when=Availability customDate"`
	Languages     []LanguageInput `json:"languages" validate:"max=4,dive"`
	Bio           string          `json:"bio" validate:"max=1000"`
	Services      []string        `json:"services" validate:"max=10,dive,max=100"`
	Industries    []string        `json:"industries" validate:"max=10,dive,max=100"`
	Contacts      *ContactsInput  `json:"contacts"`
	SEO           *SEOInput       `json:"seo"`
	Visibility    string          `json:"visibility" validate:"omitempty,oneof=public hidden pending"`
}

func (in *FreelancerInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Title = strings.TrimSpace(in.Title)
	in.Bio = strings.TrimSpace(in.Bio)
	in.Location.City = strings.TrimSpace(in.Location.City)
	in.Location.Region = strings.TrimSpace(in.Location.Region)
	in.Subcategories = trimAll(in.Subcategories)
	in.Stacks = trimAll(in.Stacks)
	in.Services = trimAll(in.Services)
	in.Industries = trimAll(in.Industries)
	defaultString(&in.Experience, "mid")
	defaultString(&in.Mode, "remote")
	defaultString(&in.Availability, "now")
	in.Visibility = strings.TrimSpace(in.Visibility)
	if in.Rate != nil {
		defaultString(&in.Rate.Currency, "MAD")
		if in.Rate.IsPublic == nil {
			t := true
			in.Rate.IsPublic = &t
		}
	}
	if in.Contacts != nil {
		in.Contacts.Whatsapp = phoneSeparators.Replace(in.Contacts.Whatsapp)
		in.Contacts.Phone = phoneSeparators.Replace(in.Contacts.Phone)
		in.Contacts.Email = strings.ToLower(strings.TrimSpace(in.Contacts.Email))
	}
}

type PortfolioInput struct {
	Title        string     `json:"title" validate:"required,min=3,max=100"`
	Description  string     `json:"description" validate:"max=500"`
	Images       []string   `json:"images" validate:"max=10,dive,url"`
	Technologies []string   `json:"technologies" validate:"max=15,dive,max=50"`
	ProjectURL   string     `json:"projectUrl" validate:"omitempty,url"`
	GithubURL    string     `json:"githubUrl" validate:"omitempty,url"`
	Category     string     `json:"category" validate:"max=50"`
	CompletedAt  *time.Time `json:"completedAt"`
	ClientName   string     `json:"clientName" validate:"max=100"`
	IsPublic     *bool      `json:"isPublic"`
}

func (in *PortfolioInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Technologies = trimAll(in.Technologies)
	in.Images = trimAll(in.Images)
	if in.IsPublic == nil {
		t := true
		in.IsPublic = &t
	}
}

func (in *PortfolioInput) Public() bool { return boolOr(in.IsPublic, true) }

type TestimonialInput struct {
	ClientName  string `json:"clientName" validate:"required,min=2,max=100"`
	Company     string `json:"company" validate:"max=100"`
	Rating      int    `json:"rating" validate:"required,min=1,max=5"`
	Comment     string `json:"comment" validate:"required,min=10,max=1000"`
	ProjectType string `json:"projectType" validate:"max=100"`
}

func (in *TestimonialInput) Normalize() {
	in.ClientName = strings.TrimSpace(in.ClientName)
	in.Comment = strings.TrimSpace(in.Comment)
}

type VisibilityInput struct {
	Visibility string `json:"visibility" validate:"required,oneof=public hidden pending"`
}

type FlagsInput struct {
	IsVerified *bool `json:"isVerified"`
	IsPremium  *bool `json:"isPremium"`
}

// ---- leads ----

type BudgetInput struct {
	Min      *float64 `json:"min" validate:"omitempty,gte=0"`
	Max      *float64 `json:"max" validate:"omitempty,gte=0"`
	Currency string   `json:"currency" validate:"oneof=MAD"`
}

type UTMInput struct {
	Source   string `json:"source" validate:"max=100"`
	Medium   string `json:"medium" validate:"max=100"`
	Campaign string `json:"campaign" validate:"max=100"`
	Term     string `json:"term" validate:"max=100"`
	Content  string `json:"content" validate:"max=100"`
}

type LeadInput struct {
	FreelancerID string       `json:"freelancerId" validate:"required,uuid"`
	Channel      string       `json:"channel" validate:"required,oneof=whatsapp phone email form"`
	Name         string       `json:"name" validate:"required,min=2,max=100"`
	Email        string       `json:"email" validate:"required_when=Channel email form,omitempty,email,max=320"`
	Phone        string       `json:"phone" validate:"required_when=Channel phone whatsapp,omitempty,ma_phone"`
	Message      string       `json:"message" validate:"required,min=10,max=2000"`
	ProjectType  string       `json:"projectType" validate:"max=100"`
	Budget       *BudgetInput `json:"budget"`
	Timeline     string       `json:"timeline" validate:"max=100"`
	Urgency      string       `json:"urgency" validate:"oneof=low medium high urgent"`
	Source       string       `json:"source" validate:"oneof=direct search referral social other"`
	UTM          *UTMInput    `json:"utm"`
}

func (in *LeadInput) Normalize() {
	in.FreelancerID = strings.TrimSpace(in.FreelancerID)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = phoneSeparators.Replace(strings.TrimSpace(in.Phone))
	in.Message = strings.TrimSpace(in.Message)
	defaultString(&in.Urgency, "medium")
	defaultString(&in.Source, "direct")
	if in.Budget != nil {
		defaultString(&in.Budget.Currency, "MAD")
	}
}

type NoteInput struct {
	Content string `json:"content" validate:"max=1000"`
}

type LeadListInput struct {
	Status   string `query:"status" validate:"omitempty,oneof=new contacted in_progress qualified converted rejected closed"`
	Channel  string `query:"channel" validate:"omitempty,oneof=whatsapp phone email form"`
	Priority string `query:"priority" validate:"omitempty,oneof=low medium high"`
	Sort     string `query:"sort" validate:"oneof=newest oldest priority status"`
	Page     int    `query:"page" validate:"min=1"`
	Limit    int    `query:"limit" validate:"min=1,max=50"`
}

func (in *LeadListInput) Normalize() {
	defaultString(&in.Sort, "newest")
	if in.Page == 0 {
		in.Page = 1
	}
	if in.Limit == 0 {
		in.Limit = 20
	}
}

// ---- search ----

type SearchInput struct {
	Q            string   `query:"q" validate:"max=100"`
	Category     string   `query:"category" validate:"omitempty,oneof=development design video photography 3d marketing writing other"`
	Stacks       []string `query:"stacks" validate:"max=15,dive,max=50"`
	Mode         string   `query:"mode" validate:"omitempty,oneof=remote hybrid onsite"`
	City         string   `query:"city" validate:"max=120"`
	Region       string   `query:"region" validate:"max=120"`
	RateMin      *float64 `query:"rate_min" validate:"omitempty,gte=0"`
	RateMax      *float64 `query:"rate_max" validate:"omitempty,gte=0"`
	Availability string   `query:"availability" validate:"omitempty,oneof=now 1w 1m"`
	Experience   string   `query:"experience" validate:"omitempty,oneof=junior mid senior expert"`
	Sort         string   `query:"sort" validate:"oneof=best newest rating price_low price_high views"`
	Page         int      `query:"page" validate:"min=1"`
	Limit        int      `query:"limit" validate:"min=1,max=50"`
}

// Normalize accepts stacks as repeated keys or a comma separated list.
func (in *SearchInput) Normalize() {
	in.Q = strings.TrimSpace(in.Q)
	in.City = strings.TrimSpace(in.City)
	in.Region = strings.TrimSpace(in.Region)
	var stacks []string
	for _, s := range in.Stacks {
		stacks = append(stacks, strings.Split(s, ",")...)
	}
	in.Stacks = trimAll(stacks)
	defaultString(&in.Sort, "best")
	if in.Page == 0 {
		in.Page = 1
	}
	if in.Limit == 0 {
		in.Limit = 12
	}
}
