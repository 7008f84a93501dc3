package domain

// Client is a customer of the signed-in company.
type Client struct {
	ID             string `json:"id,omitempty"`
	Email          string `json:"email" validate:"required,email" label:"Email"`
	Name           string `json:"name" validate:"required" label:"Name"`
	CompanyName    string `json:"companyName" validate:"required" label:"Company Name"`
	CompanyEmail   string `json:"companyEmail" validate:"required,email" label:"Company Email"`
	CompanyAddress string `json:"companyAddress" validate:"required" label:"Company Address"`
	GSTNumber      string `json:"gstNumber" validate:"required" label:"GST Number"`
}
