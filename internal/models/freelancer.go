package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Category string

const (
	CategoryDevelopment Category = "development"
	CategoryDesign      Category = "design"
	CategoryVideo       Category = "video"
	CategoryPhotography Category = "photography"
	Category3D          Category = "3d"
	CategoryMarketing   Category = "marketing"
	CategoryWriting     Category = "writing"
	CategoryOther       Category = "other"
)

type Experience string

const (
	ExperienceJunior Experience = "junior"
	ExperienceMid    Experience = "mid"
	ExperienceSenior Experience = "senior"
	ExperienceExpert Experience = "expert"
)

type WorkMode string

const (
	ModeRemote WorkMode = "remote"
	ModeHybrid WorkMode = "hybrid"
	ModeOnsite WorkMode = "onsite"
)

type RateType string

const (
	RateHourly     RateType = "hourly"
	RateDaily      RateType = "daily"
	RateProject    RateType = "project"
	RateNegotiable RateType = "negotiable"
)

type Availability string

const (
	AvailableNow        Availability = "now"
	AvailableOneWeek    Availability = "1w"
	AvailableOneMonth   Availability = "1m"
	AvailableCustomDate Availability = "customDate"
	Unavailable         Availability = "unavailable"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityHidden  Visibility = "hidden"
	VisibilityPending Visibility = "pending"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Location struct {
	City         string       `gorm:"type:varchar(120);index" json:"city"`
	Region       string       `gorm:"type:varchar(120);index" json:"region"`
	Neighborhood string       `gorm:"type:varchar(120)" json:"neighborhood,omitempty"`
	Coordinates  *Coordinates `gorm:"type:jsonb;serializer:json" json:"coordinates,omitempty"`
}

type Rate struct {
	Type            RateType `gorm:"type:varchar(20)" json:"type"`
	HourlyRate      *float64 `json:"hourlyRate,omitempty"`
	DailyRate       *float64 `json:"dailyRate,omitempty"`
	ProjectStartsAt *float64 `json:"projectStartsAt,omitempty"`
	Currency        string   `gorm:"type:varchar(3)" json:"currency"`
	IsPublic        bool     `gorm:"not null" json:"isPublic"`
}

// HasAmount reports whether any rate figure is set.
func (r Rate) HasAmount() bool {
	for _, v := range []*float64{r.HourlyRate, r.DailyRate, r.ProjectStartsAt} {
		if v != nil && *v > 0 {
			return true
		}
	}
	return false
}

type LanguageSkill struct {
	Code  string `json:"code"`
	Level string `json:"level"`
}

type SocialLinks struct {
	LinkedIn  string `json:"linkedin,omitempty"`
	GitHub    string `json:"github,omitempty"`
	Behance   string `json:"behance,omitempty"`
	Dribbble  string `json:"dribbble,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
}

type Contacts struct {
	Whatsapp string                          `gorm:"type:varchar(20)" json:"whatsapp,omitempty"`
	Phone    string                          `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Email    string                          `gorm:"type:varchar(320)" json:"email,omitempty"`
	Website  string                          `json:"website,omitempty"`
	Social   datatypes.JSONType[SocialLinks] `json:"social"`
}

func (c Contacts) Any() bool {
	return c.Whatsapp != "" || c.Phone != "" || c.Email != "" || c.Website != ""
}

type SEO struct {
	Keywords        []string `json:"keywords,omitempty"`
	MetaDescription string   `json:"metaDescription,omitempty"`
	OgImage         string   `json:"ogImage,omitempty"`
}

type PortfolioItem struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Images       []string   `json:"images"`
	Technologies []string   `json:"technologies"`
	ProjectURL   string     `json:"projectUrl,omitempty"`
	GithubURL    string     `json:"githubUrl,omitempty"`
	Category     string     `json:"category,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	ClientName   string     `json:"clientName,omitempty"`
	IsPublic     bool       `json:"isPublic"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type Testimonial struct {
	ID          uuid.UUID `json:"id"`
	ClientName  string    `json:"clientName"`
	Company     string    `json:"company,omitempty"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	ProjectType string    `json:"projectType,omitempty"`
	IsVerified  bool      `json:"isVerified"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Stats struct {
	ProfileViews      int64 `gorm:"not null;default:0" json:"profileViews"`
	ContactClicks     int64 `gorm:"not null;default:0" json:"contactClicks"`
	PortfolioViews    int64 `gorm:"not null;default:0" json:"portfolioViews"`
	SearchAppearances int64 `gorm:"not null;default:0" json:"searchAppearances"`
}

// Stat names accepted by the counter increment.
const (
	StatProfileViews      = "stats_profile_views"
	StatContactClicks     = "stats_contact_clicks"
	StatPortfolioViews    = "stats_portfolio_views"
	StatSearchAppearances = "stats_search_appearances"
)

type Completeness struct {
	Score   int                         `gorm:"not null;default:0" json:"score"`
	Missing datatypes.JSONSlice[string] `json:"missing"`
}

// FreelancerSearchDocument is the tsvector expression shared by the GIN index and search.
const FreelancerSearchDocument = `to_tsvector('simple', coalesce(name, '') || ' ' || coalesce(title, '') || ' ' || coalesce(bio, '') || ' ' || coalesce(stacks::text, '') || ' ' || coalesce(services::text, '') || ' ' || coalesce(industries::text, ''))`

// internal/models/freelancer.go
type Freelancer struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	Slug   string    `gorm:"type:varchar(140);uniqueIndex;not null" json:"slug"`

	Name   string `gorm:"type:varchar(100);not null" json:"name"`
	Title  string `gorm:"type:varchar(200)" json:"title"`
	Avatar string `json:"avatar,omitempty"`

	Category      Category                    `gorm:"type:varchar(30);index;not null" json:"category"`
	Subcategories datatypes.JSONSlice[string] `json:"subcategories"`
	Stacks        datatypes.JSONSlice[string] `json:"stacks"`
	Experience    Experience                  `gorm:"type:varchar(20);index" json:"experience"`

	Location Location `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	Mode     WorkMode `gorm:"type:varchar(20);index" json:"mode"`
	Rate     Rate     `gorm:"embedded;embeddedPrefix:rate_" json:"rate"`

	Availability  Availability `gorm:"type:varchar(20);index" json:"availability"`
	AvailableFrom *time.Time   `json:"availableFrom,omitempty"`

	Languages  datatypes.JSONSlice[LanguageSkill] `json:"languages"`
	Bio        string                             `gorm:"type:text" json:"bio,omitempty"`
	Services   datatypes.JSONSlice[string]        `json:"services"`
	Industries datatypes.JSONSlice[string]        `json:"industries"`

	Portfolio    datatypes.JSONSlice[PortfolioItem] `json:"portfolio"`
	Testimonials datatypes.JSONSlice[Testimonial]   `json:"testimonials"`

	Contacts Contacts                `gorm:"embedded;embeddedPrefix:contact_" json:"contacts"`
	SEO      datatypes.JSONType[SEO] `gorm:"column:seo" json:"seo"`

	Visibility Visibility `gorm:"type:varchar(20);index;not null" json:"visibility"`
	IsVerified bool       `gorm:"not null" json:"isVerified"`
	IsPremium  bool       `gorm:"not null" json:"isPremium"`

	Stats        Stats        `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`
	Completeness Completeness `gorm:"embedded;embeddedPrefix:completeness_" json:"completeness"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (f *Freelancer) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// BeforeSave keeps the stored completeness in step with the profile on every write.
func (f *Freelancer) BeforeSave(tx *gorm.DB) error {
	f.Completeness = f.ComputeCompleteness()
	return nil
}

func (f *Freelancer) IsPublic() bool { return f.Visibility == VisibilityPublic }

func (f *Freelancer) OwnedBy(userID uuid.UUID) bool { return f.UserID == userID }

// VerifiedTestimonials are the testimonials shown to visitors.
func (f *Freelancer) VerifiedTestimonials() []Testimonial {
	out := make([]Testimonial, 0, len(f.Testimonials))
	for _, t := range f.Testimonials {
		if t.IsVerified {
			out = append(out, t)
		}
	}
	return out
}

// AverageRating is the mean verified rating rounded to one decimal, 0 without any.
func (f *Freelancer) AverageRating() float64 {
	verified := f.VerifiedTestimonials()
	if len(verified) == 0 {
		return 0
	}
	sum := 0
	for _, t := range verified {
		sum += t.Rating
	}
	return math.Round(float64(sum)/float64(len(verified))*10) / 10
}

func (f *Freelancer) TotalTestimonials() int { return len(f.VerifiedTestimonials()) }

// PortfolioIndex returns the position of the item with the given sub-id, or -1.
func (f *Freelancer) PortfolioIndex(id uuid.UUID) int {
	for i, item := range f.Portfolio {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (f *Freelancer) RemovePortfolioItem(id uuid.UUID) bool {
	i := f.PortfolioIndex(id)
	if i < 0 {
		return false
	}
	f.Portfolio = append(f.Portfolio[:i], f.Portfolio[i+1:]...)
	return true
}

// PublicRate hides amounts the owner marked private.
func (f *Freelancer) PublicRate() Rate {
	if f.Rate.IsPublic {
		return f.Rate
	}
	return Rate{Type: f.Rate.Type, Currency: f.Rate.Currency}
}

type PortfolioPreview struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Images       []string  `json:"images"`
	Technologies []string  `json:"technologies"`
	Category     string    `json:"category,omitempty"`
}

// FreelancerSummary is the row returned by search and listings.
type FreelancerSummary struct {
	ID                uuid.UUID          `json:"id"`
	Slug              string             `json:"slug"`
	Name              string             `json:"name"`
	Title             string             `json:"title"`
	Avatar            string             `json:"avatar,omitempty"`
	Category          Category           `json:"category"`
	Subcategories     []string           `json:"subcategories"`
	Stacks            []string           `json:"stacks"`
	Experience        Experience         `json:"experience"`
	Location          Location           `json:"location"`
	Mode              WorkMode           `json:"mode"`
	Rate              Rate               `json:"rate"`
	Availability      Availability       `json:"availability"`
	AvailableFrom     *time.Time         `json:"availableFrom,omitempty"`
	Languages         []LanguageSkill    `json:"languages"`
	Bio               string             `json:"bio,omitempty"`
	Services          []string           `json:"services"`
	Industries        []string           `json:"industries"`
	Portfolio         []PortfolioPreview `json:"portfolio"`
	IsVerified        bool               `json:"isVerified"`
	IsPremium         bool               `json:"isPremium"`
	Stats             Stats              `json:"stats"`
	Completeness      int                `json:"completeness"`
	AverageRating     float64            `json:"averageRating"`
	TotalTestimonials int                `json:"totalTestimonials"`
	CreatedAt         time.Time          `json:"createdAt"`
}

// Summary strips the owner reference, testimonials, portfolio descriptions and SEO.
func (f *Freelancer) Summary() FreelancerSummary {
	previews := make([]PortfolioPreview, 0, len(f.Portfolio))
	for _, p := range f.Portfolio {
		if !p.IsPublic {
			continue
		}
		previews = append(previews, PortfolioPreview{
			ID:           p.ID,
			Title:        p.Title,
			Images:       nonNil(p.Images),
			Technologies: nonNil(p.Technologies),
			Category:     p.Category,
		})
	}
	return FreelancerSummary{
		ID:                f.ID,
		Slug:              f.Slug,
		Name:              f.Name,
		Title:             f.Title,
		Avatar:            f.Avatar,
		Category:          f.Category,
		Subcategories:     nonNil(f.Subcategories),
		Stacks:            nonNil(f.Stacks),
		Experience:        f.Experience,
		Location:          f.Location,
		Mode:              f.Mode,
		Rate:              f.PublicRate(),
		Availability:      f.Availability,
		AvailableFrom:     f.AvailableFrom,
		Languages:         nonNil(f.Languages),
		Bio:               f.Bio,
		Services:          nonNil(f.Services),
		Industries:        nonNil(f.Industries),
		Portfolio:         previews,
		IsVerified:        f.IsVerified,
		IsPremium:         f.IsPremium,
		Stats:             f.Stats,
		Completeness:      f.Completeness.Score,
		AverageRating:     f.AverageRating(),
		TotalTestimonials: f.TotalTestimonials(),
		CreatedAt:         f.CreatedAt,
	}
}

// FreelancerDetail is the profile page seen by visitors.
type FreelancerDetail struct {
	FreelancerSummary
	Portfolio    []PortfolioItem `json:"portfolio"`
	Testimonials []Testimonial   `json:"testimonials"`
	Contacts     Contacts        `json:"contacts"`
	SEO          SEO             `json:"seo"`
}

// Detail is the visitor view: public portfolio items, verified testimonials, no owner id.
func (f *Freelancer) Detail() FreelancerDetail {
	items := make([]PortfolioItem, 0, len(f.Portfolio))
	for _, p := range f.Portfolio {
		if p.IsPublic {
			items = append(items, p)
		}
	}
	return FreelancerDetail{
		FreelancerSummary: f.Summary(),
		Portfolio:         items,
		Testimonials:      f.VerifiedTestimonials(),
		Contacts:          f.Contacts,
		SEO:               f.SEO.Data(),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
