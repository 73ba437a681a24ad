package obs

import (
	"context"
	"sync"
)

type requestInfoKey struct{}

// RequestInfo collects facts learned while a request is routed and handled,
// so outer middleware can label logs, metrics and spans once it returns.
type RequestInfo struct {
	mu        sync.Mutex
	route     string
	kind      string
	invoiceID string
}

// WithRequestInfo attaches a fresh RequestInfo to ctx.
func WithRequestInfo(ctx context.Context) (context.Context, *RequestInfo) {
	info := &RequestInfo{}
	return context.WithValue(ctx, requestInfoKey{}, info), info
}

// RequestInfoFrom returns the RequestInfo on ctx, or nil.
func RequestInfoFrom(ctx context.Context) *RequestInfo {
	if ctx == nil {
		return nil
	}
	info, _ := ctx.Value(requestInfoKey{}).(*RequestInfo)
	return info
}

// AnnotateInvoice records the invoice a handler is working on. No-op when
// the request was not wrapped by RequestInfoMiddleware.
func AnnotateInvoice(ctx context.Context, kind, id string) {
	info := RequestInfoFrom(ctx)
	if info == nil {
		return
	}
	info.mu.Lock()
	info.kind, info.invoiceID = kind, id
	info.mu.Unlock()
}

// SetRoute records the matched route pattern.
func (i *RequestInfo) SetRoute(pattern string) {
	if i == nil || pattern == "" {
		return
	}
	i.mu.Lock()
	i.route = pattern
	i.mu.Unlock()
}

// Route returns the matched route pattern, if known.
func (i *RequestInfo) Route() string {
	if i == nil {
		return ""
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.route
}

// Invoice returns the annotated invoice kind and id.
func (i *RequestInfo) Invoice() (kind, id string) {
	if i == nil {
		return "", ""
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.kind, i.invoiceID
}
