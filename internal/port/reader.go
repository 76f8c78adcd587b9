package port

import "paperrag/internal/domain"

// LayoutReader parses raw PDF bytes into per-page layout and text.
type LayoutReader interface {
	Read(name string, data []byte) (*domain.ParsedPDF, error)
}
