package customers

// UpdateCustomerRequest carries a sparse customer edit. Empty optional text clears the field.
type UpdateCustomerRequest struct {
	Name          *string `json:"name,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	Address       *string `json:"address,omitempty"`
	Symptoms      *string `json:"symptoms,omitempty"`
	SocialName    *string `json:"socialName,omitempty"`
	ContactMethod *string `json:"contactMethod,omitempty"`
}

// ListCustomersRequest filters the directory listing.
type ListCustomersRequest struct {
	Search string
	Limit  int
	Offset int
}
