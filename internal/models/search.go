package models

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// PageSize mirrors the results site's pagination contract: page N starts at
// offset N*PageSize.
const PageSize = 10

// SearchSpec is the immutable input of one crawl run.
type SearchSpec struct {
	Query     string `validate:"required"`
	Location  string
	PageCount int `validate:"min=1"`
	StartPage int `validate:"min=0"`
}

var specValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the spec before a run starts.
func (s SearchSpec) Validate() error {
	if err := specValidator.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid search: %s failed %q (got %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid search: %w", err)
	}
	return nil
}

// Pages returns the page requests of the run in crawl order.
func (s SearchSpec) Pages() []PageRequest {
	pages := make([]PageRequest, 0, s.PageCount)
	for i := 0; i < s.PageCount; i++ {
		pages = append(pages, NewPageRequest(s.StartPage+i))
	}
	return pages
}

// PageRequest addresses one results page. It is derived per iteration.
type PageRequest struct {
	PageIndex int
	Offset    int
}

func NewPageRequest(index int) PageRequest {
	return PageRequest{PageIndex: index, Offset: index * PageSize}
}
