package entity

import (
	"strings"

	"github.com/jhoicas/commerce-core/internal/domain"
)

// Address es una dirección postal copiada en la orden.
type Address struct {
	ID         string `json:"id,omitempty"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// Validate exige nombre, línea 1, ciudad y país.
func (a *Address) Validate() error {
	var missing []string
	if strings.TrimSpace(a.FirstName) == "" {
		missing = append(missing, "first_name")
	}
	if strings.TrimSpace(a.Line1) == "" {
		missing = append(missing, "line1")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.Country) == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return domain.ErrInvalidAddress.Withf("faltan %s", strings.Join(missing, ", "))
	}
	return nil
}
