package freelancers

import (
	"gorm.io/datatypes"

	"github.com/mkhedmin/mkhedmin-api/internal/models"
	"github.com/mkhedmin/mkhedmin-api/internal/validation"
)

const defaultCurrency = "MAD"

// applyProfile copies a validated profile payload onto f. Server-owned fields
// (ids, slug, flags, stats, portfolio, testimonials) are left untouched.
func applyProfile(f *models.Freelancer, in validation.FreelancerInput) {
	f.Name = in.Name
	f.Title = in.Title
	f.Avatar = in.Avatar
	f.Category = models.Category(in.Category)
	f.Subcategories = datatypes.JSONSlice[string](in.Subcategories)
	f.Stacks = datatypes.JSONSlice[string](in.Stacks)
	f.Experience = models.Experience(in.Experience)

	f.Location = models.Location{
		City:         in.Location.City,
		Region:       in.Location.Region,
		Neighborhood: in.Location.Neighborhood,
	}
	if c := in.Location.Coordinates; c != nil && c.Lat != nil && c.Lng != nil {
		f.Location.Coordinates = &models.Coordinates{Lat: *c.Lat, Lng: *c.Lng}
	}

	f.Mode = models.WorkMode(in.Mode)
	f.Rate = rate(in.Rate)

	f.Availability = models.Availability(in.Availability)
	f.AvailableFrom = nil
	if f.Availability == models.AvailableCustomDate {
		f.AvailableFrom = in.AvailableFrom
	}

	langs := make(datatypes.JSONSlice[models.LanguageSkill], 0, len(in.Languages))
	for _, l := range in.Languages {
		langs = append(langs, models.LanguageSkill{Code: l.Code, Level: l.Level})
	}
	f.Languages = langs

	f.Bio = in.Bio
	f.Services = datatypes.JSONSlice[string](in.Services)
	f.Industries = datatypes.JSONSlice[string](in.Industries)
	f.Contacts = contacts(in.Contacts)
	f.SEO = datatypes.NewJSONType(seo(in.SEO))

	if in.Visibility != "" {
		f.Visibility = models.Visibility(in.Visibility)
	}
}

func rate(in *validation.RateInput) models.Rate {
	if in == nil {
		return models.Rate{Type: models.RateNegotiable, Currency: defaultCurrency, IsPublic: true}
	}
	r := models.Rate{
		Type:            models.RateType(in.Type),
		HourlyRate:      in.HourlyRate,
		DailyRate:       in.DailyRate,
		ProjectStartsAt: in.ProjectStartsAt,
		Currency:        in.Currency,
		IsPublic:        in.IsPublic == nil || *in.IsPublic,
	}
	if r.Currency == "" {
		r.Currency = defaultCurrency
	}
	return r
}

func contacts(in *validation.ContactsInput) models.Contacts {
	if in == nil {
		return models.Contacts{Social: datatypes.NewJSONType(models.SocialLinks{})}
	}
	var social models.SocialLinks
	if s := in.Social; s != nil {
		social = models.SocialLinks{
			LinkedIn:  s.LinkedIn,
			GitHub:    s.GitHub,
			Behance:   s.Behance,
			Dribbble:  s.Dribbble,
			Instagram: s.Instagram,
			Twitter:   s.Twitter,
		}
	}
	return models.Contacts{
		Whatsapp: in.Whatsapp,
		Phone:    in.Phone,
		Email:    in.Email,
		Website:  in.Website,
		Social:   datatypes.NewJSONType(social),
	}
}

func seo(in *validation.SEOInput) models.SEO {
	if in == nil {
		return models.SEO{}
	}
	return models.SEO{Keywords: in.Keywords, MetaDescription: in.MetaDescription, OgImage: in.OgImage}
}

func portfolioItem(in validation.PortfolioInput) models.PortfolioItem {
	return models.PortfolioItem{
		Title:        in.Title,
		Description:  in.Description,
		Images:       in.Images,
		Technologies: in.Technologies,
		ProjectURL:   in.ProjectURL,
		GithubURL:    in.GithubURL,
		Category:     in.Category,
		CompletedAt:  in.CompletedAt,
		ClientName:   in.ClientName,
		IsPublic:     in.Public(),
	}
}
