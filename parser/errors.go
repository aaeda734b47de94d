package parser

import "fmt"

// ErrStructural indicates that an expected markup region is missing.
type ErrStructural struct {
	Selector string
	Page     string
}

func (e ErrStructural) Error() string {
	if e.Page == "" {
		return fmt.Sprintf("structural: region %q not found", e.Selector)
	}
	return fmt.Sprintf("structural: region %q not found on %s", e.Selector, e.Page)
}

// ErrParse indicates a malformed structured-data block.
type ErrParse struct {
	Block int
	Err   error
}

func (e ErrParse) Error() string {
	return fmt.Errorf("parse: json-ld block %d: %w", e.Block, e.Err).Error()
}

func (e ErrParse) Unwrap() error {
	return e.Err
}
