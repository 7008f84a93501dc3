package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ObjectInfo struct {
	Key          string     `json:"key"`
	Size         int64      `json:"size"`
	LastModified *time.Time `json:"lastModified,omitempty"`
}

// Service stores printed invoices in remote object storage.
type Service interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	DeletePrefix(ctx context.Context, bucket, prefix string) error
	GetObjectURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}

// InvoicePrefix is the folder holding every archived copy of one invoice.
func InvoicePrefix(keyPrefix, invoiceID string) string {
	return strings.Trim(path.Join(strings.Trim(keyPrefix, "/"), invoiceID), "/") + "/"
}

// NewInvoiceKey returns a fresh object key for one archived copy.
func NewInvoiceKey(keyPrefix, invoiceID string) string {
	return InvoicePrefix(keyPrefix, invoiceID) + fmt.Sprintf("%s-%s.pdf", time.Now().UTC().Format("20060102T150405Z"), uuid.NewString())
}
