package domain

// Company is the profile of the actor's own business. Its presence on the
// backend marks onboarding as complete.
type Company struct {
	CompanyName      string `json:"companyName" validate:"required" label:"Company Name"`
	CompanyEmail     string `json:"companyEmail" validate:"required,email" label:"Company Email"`
	CompanyContactNo string `json:"companyContactNo" validate:"required,len=10,numeric" label:"Contact number"`
	Address          string `json:"address" validate:"required" label:"Address"`
	GSTNumber        string `json:"gstNumber" validate:"required" label:"GST Number"`
}

// IsZero reports whether the profile carries no data at all.
func (c Company) IsZero() bool {
	return c == Company{}
}
