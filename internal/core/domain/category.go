package domain

// DefaultCategoryColor is the color tag assigned when none is supplied.
const DefaultCategoryColor = "#007bff"

// Category is a label attached to transactions for budgeting and reporting.
type Category struct {
	CategoryID string  `json:"categoryID"`
	Name       string  `json:"name"`
	ParentID   *string `json:"parentID,omitempty"`
	Color      string  `json:"color"`
	IsActive   bool    `json:"isActive"`
}

// DisplayName renders the category with its parent, e.g. "Food > Groceries".
func (c *Category) DisplayName(parent *Category) string {
	if parent == nil {
		return c.Name
	}
	return parent.Name + " > " + c.Name
}
