// Package pdf renders creator revenue statements.
package pdf

import "context"

type Provider interface {
	GenerateStatement(ctx context.Context, data StatementData) ([]byte, error)
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}
