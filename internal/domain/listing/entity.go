package listing

import "time"

// Content field names, in export order.
const (
	FieldJobTitle              = "job_title"
	FieldCompanyName           = "company_name"
	FieldObjectID              = "object_id"
	FieldJobCity               = "job_city"
	FieldExpirationDate        = "expiration_date"
	FieldJobDescription        = "job_description"
	FieldJobCategory           = "job_category"
	FieldContractType          = "contract_type"
	FieldExperienceRequirement = "experience_requirement"
	FieldMonthlySalary         = "monthly_salary"
	FieldCLRequirement         = "cl_requirement"
	FieldPhotoRequirement      = "photo_requirement"
)

const (
	ColumnScrapingTime = "scraping_time"
	ColumnObjectLink   = "object_link"
	ColumnPageHTML     = "page_html"
)

// ContentFields lists the attributes extracted from listing markup. Each one
// defaults to "" when its structural path is missing.
var ContentFields = []string{
	FieldJobTitle,
	FieldCompanyName,
	FieldObjectID,
	FieldJobCity,
	FieldExpirationDate,
	FieldJobDescription,
	FieldJobCategory,
	FieldContractType,
	FieldExperienceRequirement,
	FieldMonthlySalary,
	FieldCLRequirement,
	FieldPhotoRequirement,
}

// Reference points at one listing detail page. URL is the identity key.
type Reference struct {
	URL string
}

// Record is the structured form of one listing page.
type Record struct {
	ObjectLink            string
	JobTitle              string
	CompanyName           string
	ObjectID              string
	JobCity               string
	ExpirationDate        string
	JobDescription        string
	JobCategory           string
	ContractType          string
	ExperienceRequirement string
	MonthlySalary         string
	CLRequirement         string
	PhotoRequirement      string
	PageHTML              string
	ScrapingTime          time.Time
}

// ContentField returns a pointer to the named content field, or nil for an
// unknown name.
func (r *Record) ContentField(name string) *string {
	switch name {
	case FieldJobTitle:
		return &r.JobTitle
	case FieldCompanyName:
		return &r.CompanyName
	case FieldObjectID:
		return &r.ObjectID
	case FieldJobCity:
		return &r.JobCity
	case FieldExpirationDate:
		return &r.ExpirationDate
	case FieldJobDescription:
		return &r.JobDescription
	case FieldJobCategory:
		return &r.JobCategory
	case FieldContractType:
		return &r.ContractType
	case FieldExperienceRequirement:
		return &r.ExperienceRequirement
	case FieldMonthlySalary:
		return &r.MonthlySalary
	case FieldCLRequirement:
		return &r.CLRequirement
	case FieldPhotoRequirement:
		return &r.PhotoRequirement
	default:
		return nil
	}
}

// Columns returns the export column order. page_html is left out when
// includeHTML is false.
func Columns(includeHTML bool) []string {
	cols := make([]string, 0, len(ContentFields)+3)
	cols = append(cols, ColumnScrapingTime, ColumnObjectLink)
	cols = append(cols, ContentFields...)
	if includeHTML {
		cols = append(cols, ColumnPageHTML)
	}
	return cols
}

// Values returns the record's values in Columns order.
func (r Record) Values(includeHTML bool) []string {
	out := make([]string, 0, len(ContentFields)+3)
	out = append(out, r.ScrapingTime.Format(time.RFC3339), r.ObjectLink)
	for _, name := range ContentFields {
		out = append(out, *r.ContentField(name))
	}
	if includeHTML {
		out = append(out, r.PageHTML)
	}
	return out
}
