package domain

import "strings"

// Category is the coarse page type used to pick quick questions.
type Category string

const (
	CategoryHome          Category = "home"
	CategoryProducts      Category = "products"
	CategoryProductDetail Category = "product-detail"
	CategoryAbout         Category = "about"
	CategoryContact       Category = "contact"
	CategoryDefault       Category = "default"
)

// Categories lists every known category.
var Categories = []Category{
	CategoryHome,
	CategoryProducts,
	CategoryProductDetail,
	CategoryAbout,
	CategoryContact,
	CategoryDefault,
}

// legacyProductPageType is the page_type the conversational backend uses for product pages.
const legacyProductPageType = "product"

// ResolveCategory maps a navigation path to its category. First match wins.
func ResolveCategory(path string) Category {
	switch {
	case strings.HasPrefix(path, "/products/") && len(path) > len("/products/"):
		return CategoryProductDetail
	case path == "/products":
		return CategoryProducts
	case path == "/about":
		return CategoryAbout
	case path == "/contact":
		return CategoryContact
	case path == "/":
		return CategoryHome
	default:
		return CategoryDefault
	}
}

// ParseCategory maps a page_type query value to a category.
// Unknown and empty values resolve to CategoryDefault.
func ParseCategory(s string) Category {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == legacyProductPageType {
		return CategoryProductDetail
	}
	for _, c := range Categories {
		if string(c) == s {
			return c
		}
	}
	return CategoryDefault
}

// PageType returns the name the conversational backend expects for this category.
func (c Category) PageType() string {
	if c == CategoryProductDetail {
		return legacyProductPageType
	}
	if c == "" {
		return string(CategoryDefault)
	}
	return string(c)
}

func (c Category) String() string {
	return string(c)
}

// PageContext is the navigation state attached to outgoing messages.
type PageContext struct {
	Path     string
	Category Category
}

// NewPageContext resolves the category for path.
func NewPageContext(path string) PageContext {
	return PageContext{Path: path, Category: ResolveCategory(path)}
}
