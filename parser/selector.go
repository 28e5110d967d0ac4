package parser

import (
	"fmt"
	"strings"

	"github.com/antchfx/xpath"

	"github.com/use-agent/blockcrawl/models"
)

// Selector is a compiled XPath expression. The zero value is invalid;
// construct with NewSelector. A Selector can be evaluated any number of
// times against any parser.
type Selector struct {
	expr     string
	compiled *xpath.Expr
}

// NewSelector compiles expr.
func NewSelector(expr string) (sel Selector, err error) {
	if strings.TrimSpace(expr) == "" {
		return Selector{}, models.Errorf(models.ErrCodeInvalidSelector, "Invalid XPath '%s': empty expression", expr)
	}
	defer func() {
		if r := recover(); r != nil {
			sel = Selector{}
			err = models.NewCrawlError(models.ErrCodeInvalidSelector,
				fmt.Sprintf("Invalid XPath '%s'", expr), fmt.Errorf("%v", r))
		}
	}()
	compiled, cerr := xpath.Compile(expr)
	if cerr != nil {
		return Selector{}, models.NewCrawlError(models.ErrCodeInvalidSelector,
			fmt.Sprintf("Invalid XPath '%s'", expr), cerr)
	}
	return Selector{expr: expr, compiled: compiled}, nil
}

// MustSelector is like NewSelector but panics on error.
func MustSelector(expr string) Selector {
	sel, err := NewSelector(expr)
	if err != nil {
		panic(err)
	}
	return sel
}

// Expression returns the source text of the selector.
func (s Selector) Expression() string { return s.expr }

func (s Selector) valid() bool { return s.compiled != nil }
